package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/chatflow/pkg/conversation"
	"github.com/goccy/go-json"
)

// JSONHandler implements the IOHandler interface for JSON-Lines communication.
//
// Each input line is either a JSON object with "text" and "quick_reply_payload",
// a JSON string, or plain text. Each outcome is written as one JSON line.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

type systemLine struct {
	System string `json:"system"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, outcome *conversation.Outcome) error {
	return h.Encoder.Encode(outcome)
}

func (h *JSONHandler) Input(ctx context.Context) (conversation.InboundMessage, error) {
	for {
		if err := ctx.Err(); err != nil {
			return conversation.InboundMessage{}, err
		}
		line, err := h.Reader.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
			return conversation.InboundMessage{}, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		msg := parseLine(line)
		if msg.Text, err = SanitizeInput(msg.Text); err != nil {
			return conversation.InboundMessage{}, fmt.Errorf("invalid input line: %w", err)
		}
		if msg.QuickReplyPayload, err = SanitizeInput(msg.QuickReplyPayload); err != nil {
			return conversation.InboundMessage{}, fmt.Errorf("invalid input line: %w", err)
		}
		return msg, nil
	}
}

func parseLine(line string) conversation.InboundMessage {
	var msg conversation.InboundMessage
	if strings.HasPrefix(line, "{") {
		if err := json.Unmarshal([]byte(line), &msg); err == nil {
			return conversation.InboundMessage{Text: msg.Text, QuickReplyPayload: msg.QuickReplyPayload}
		}
	}
	var text string
	if err := json.Unmarshal([]byte(line), &text); err == nil {
		return conversation.InboundMessage{Text: text}
	}
	return conversation.InboundMessage{Text: line}
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(systemLine{System: msg})
}
