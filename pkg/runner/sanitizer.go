package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize bounds one inbound message in bytes.
const DefaultMaxInputSize = 4096

// EnvMaxInputSize overrides DefaultMaxInputSize for SanitizeInput.
const EnvMaxInputSize = "CHATFLOW_MAX_INPUT_SIZE"

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput cleans a user message with the limit from CHATFLOW_MAX_INPUT_SIZE.
func SanitizeInput(input string) (string, error) {
	return SanitizeInputLimit(input, maxInputSizeFromEnv())
}

// SanitizeInputLimit rejects messages over limit bytes or with invalid UTF-8,
// then drops control and invisible formatting characters (zero-width spaces,
// bidi overrides, BOM) that messaging apps paste into text, folds CRLF into LF
// and trims surrounding whitespace. A non-positive limit selects
// DefaultMaxInputSize.
func SanitizeInputLimit(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	// Rejected, never truncated: a cut reply could still pass a validation rule.
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	input = strings.ReplaceAll(input, "\r\n", "\n")
	if strings.IndexFunc(input, dropped) < 0 {
		return strings.TrimSpace(input), nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !dropped(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func dropped(r rune) bool {
	if r == '\n' || r == '\t' {
		return false
	}
	return unicode.IsControl(r) || unicode.Is(unicode.Cf, r)
}

func maxInputSizeFromEnv() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
