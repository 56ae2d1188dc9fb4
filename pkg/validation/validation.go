// Package validation implements the input rules of ask_question nodes and the
// reply resolution of button_choice and show_items nodes.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/aretw0/chatflow/pkg/textnorm"
)

// Rule names accepted in node configurations. An empty rule accepts any non-empty text.
const (
	RuleNone   = ""
	RuleText   = "text"
	RulePhone  = "phone"
	RuleEmail  = "email"
	RuleNumber = "number"
	RuleDate   = "date"
)

const (
	minPhoneLen = 6
	maxPhoneLen = 15
)

var (
	phonePattern  = regexp.MustCompile(`^\+?[0-9\s\-()]+$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@.]+(\.[^\s@.]+)+$`)
	numberPattern = regexp.MustCompile(`^-?\d+([.,]\d+)?$`)
)

// DateWords is the natural-language vocabulary accepted by the date rule, in
// normalized form (lower case, no accents).
var DateWords = map[string]bool{
	"hoy": true, "manana": true, "pasado": true, "semana": true, "finde": true,
	"proximo": true, "proxima": true,
	"lunes": true, "martes": true, "miercoles": true, "jueves": true,
	"viernes": true, "sabado": true, "domingo": true,
	"today": true, "tomorrow": true, "tonight": true, "weekend": true, "next": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Validate reports whether value satisfies rule. It is a pure function of its inputs.
// Unknown rules behave like RuleNone.
func Validate(value, rule string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}

	switch rule {
	case RulePhone:
		// The length bound includes the leading plus.
		return len(v) >= minPhoneLen && len(v) <= maxPhoneLen && phonePattern.MatchString(v)
	case RuleEmail:
		return strings.Count(v, "@") == 1 && emailPattern.MatchString(v)
	case RuleNumber:
		return numberPattern.MatchString(v)
	case RuleDate:
		return isDate(v)
	default:
		return true
	}
}

func isDate(v string) bool {
	for _, r := range v {
		if unicode.IsDigit(r) {
			return true
		}
	}
	for _, tok := range textnorm.Tokens(v) {
		if DateWords[tok] {
			return true
		}
	}
	return false
}

// DefaultErrorMessage returns the re-prompt text used when a node has none configured.
func DefaultErrorMessage(rule string) string {
	switch rule {
	case RulePhone:
		return "That doesn't look like a valid phone number. Please try again."
	case RuleEmail:
		return "That doesn't look like a valid email address. Please try again."
	case RuleNumber:
		return "Please enter a valid number."
	case RuleDate:
		return "Please enter a date (for example 12/05 or tomorrow)."
	default:
		return "Please type a reply to continue."
	}
}
