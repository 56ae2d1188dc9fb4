package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/chatflow/pkg/conversation"
	"github.com/aretw0/chatflow/pkg/domain"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader *bufio.Reader
	Writer io.Writer
	// Prompt is printed before every read. Empty disables it.
	Prompt string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: "> ",
	}
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honor ctx while blocked.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

func (h *TextHandler) Output(ctx context.Context, outcome *conversation.Outcome) error {
	for _, msg := range outcome.Messages {
		if msg.Text != "" {
			fmt.Fprintln(h.Writer, strings.TrimSpace(msg.Text))
		}
		switch msg.Type {
		case domain.MessageQuickReplies:
			for i, qr := range msg.QuickReplies {
				fmt.Fprintf(h.Writer, "  [%d] %s\n", i+1, qr.Title)
			}
		case domain.MessageProductCards:
			for _, card := range msg.Cards {
				fmt.Fprintf(h.Writer, "  * %s", card.Name)
				if card.Price > 0 {
					fmt.Fprintf(h.Writer, " (%.2f)", card.Price)
				}
				fmt.Fprintln(h.Writer)
				if card.Description != "" {
					fmt.Fprintf(h.Writer, "    %s\n", card.Description)
				}
			}
		}
	}
	return nil
}

func (h *TextHandler) Input(ctx context.Context) (conversation.InboundMessage, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return conversation.InboundMessage{}, ctx.Err()
		default:
			if h.Prompt != "" {
				fmt.Fprint(h.Writer, h.Prompt)
			}
		}

		select {
		case <-ctx.Done():
			return conversation.InboundMessage{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return conversation.InboundMessage{}, io.EOF
			}
			if res.err != nil {
				return conversation.InboundMessage{}, res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			if clean == "" {
				continue
			}
			return conversation.InboundMessage{Text: clean}, nil
		}
	}
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return err
}
