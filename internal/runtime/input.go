package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/interpolate"
	"github.com/aretw0/chatflow/pkg/validation"
)

const (
	defaultChoiceError    = "Please choose one of the options:"
	defaultSelectionError = "Please reply with the number of the option you want."
)

// acceptInput validates a reply for the input node the execution is parked at.
// On rejection it queues the re-prompt and returns false; on acceptance it stores
// the answer and returns the next node id (empty when the node has no exit).
func (e *Engine) acceptInput(r *run, node *domain.Node, message string) (string, bool) {
	vars := r.state.Variables

	switch node.Type {
	case domain.NodeAskQuestion:
		var cfg domain.AskQuestionConfig
		e.decode(node, &cfg)
		if !validation.Validate(message, cfg.Validation) {
			r.say(orDefault(interpolate.Render(cfg.ErrorMessage, vars), validation.DefaultErrorMessage(cfg.Validation)))
			return "", false
		}
		if cfg.Variable != "" {
			vars[cfg.Variable] = strings.TrimSpace(message)
		}
		return e.nextFrom(r, node, ""), true

	case domain.NodeButtonChoice:
		var cfg domain.ButtonChoiceConfig
		e.decode(node, &cfg)
		idx, ok := validation.ResolveButton(message, cfg.Buttons)
		if !ok {
			text := orDefault(interpolate.Render(cfg.ErrorMessage, vars), defaultChoiceError)
			r.messages = append(r.messages, buttonPrompt(text, cfg.Buttons, true))
			return "", false
		}
		if cfg.Variable != "" {
			vars[cfg.Variable] = cfg.Buttons[idx].Answer()
		}
		return e.nextFrom(r, node, domain.ButtonHandle(idx)), true

	case domain.NodeShowItems:
		var cfg domain.ShowItemsConfig
		e.decode(node, &cfg)
		shown, _ := decodeItems(vars[domain.VarLastShownItems])
		idx, ok := validation.ResolveItem(message, shown)
		if !ok {
			r.say(orDefault(interpolate.Render(cfg.ErrorMessage, vars), defaultSelectionError))
			return "", false
		}
		if cfg.SelectVariable != "" {
			vars[cfg.SelectVariable] = shown[idx].ID
			vars[cfg.SelectVariable+"_name"] = shown[idx].Name
		}
		return e.nextFrom(r, node, ""), true
	}

	return e.nextFrom(r, node, ""), true
}

// buttonPrompt builds the quick-reply message of a button_choice node. When
// enumerate is set the options are also listed in the text, numbered from 1.
func buttonPrompt(text string, buttons []domain.Button, enumerate bool) domain.Message {
	replies := make([]domain.QuickReply, len(buttons))
	var sb strings.Builder
	sb.WriteString(text)
	for i, b := range buttons {
		replies[i] = domain.QuickReply{Title: b.Label, Payload: b.Answer()}
		if enumerate {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, b.Label)
		}
	}
	return domain.Message{
		Type:         domain.MessageQuickReplies,
		Text:         sb.String(),
		QuickReplies: replies,
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
