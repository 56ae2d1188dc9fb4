package runtime

import (
	"context"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/interpolate"
)

const defaultHandoffMessage = "Connecting you with a member of our team. Someone will reply shortly."

// execute runs one node and reports the next node id and what the walk should do.
// A node whose config cannot be decoded behaves as a pass-through.
func (e *Engine) execute(ctx context.Context, r *run, node *domain.Node) (string, control) {
	vars := r.state.Variables

	switch node.Type {
	case domain.NodeTrigger, domain.NodeDelay:
		return e.nextFrom(r, node, ""), proceed

	case domain.NodeSendMessage:
		var cfg domain.SendMessageConfig
		if e.decode(node, &cfg) {
			r.say(interpolate.Render(cfg.Text, vars))
		}
		return e.nextFrom(r, node, ""), proceed

	case domain.NodeAskQuestion:
		var cfg domain.AskQuestionConfig
		e.decode(node, &cfg)
		r.say(interpolate.Render(cfg.Question, vars))
		return "", suspend

	case domain.NodeButtonChoice:
		var cfg domain.ButtonChoiceConfig
		e.decode(node, &cfg)
		if len(cfg.Buttons) == 0 {
			r.say(interpolate.Render(cfg.Text, vars))
			return e.nextFrom(r, node, ""), proceed
		}
		r.messages = append(r.messages, buttonPrompt(interpolate.Render(cfg.Text, vars), cfg.Buttons, false))
		return "", suspend

	case domain.NodeCondition:
		return e.evalCondition(r, node), proceed

	case domain.NodeAPIAction:
		e.runAction(ctx, r, node)
		return e.nextFrom(r, node, ""), proceed

	case domain.NodeShowItems:
		if e.showItems(ctx, r, node) {
			return "", suspend
		}
		return e.nextFrom(r, node, ""), proceed

	case domain.NodeHandoff:
		var cfg domain.HandoffConfig
		e.decode(node, &cfg)
		msg := interpolate.Render(cfg.Message, vars)
		if msg == "" {
			msg = defaultHandoffMessage
		}
		r.say(msg)
		return "", handoff

	case domain.NodeEnd:
		var cfg domain.EndConfig
		e.decode(node, &cfg)
		r.say(interpolate.Render(cfg.Message, vars))
		return "", terminate

	default:
		e.logger.Debug("unknown node type, passing through", "node_id", node.ID, "type", node.Type)
		return e.nextFrom(r, node, ""), proceed
	}
}

// nextFrom resolves the target of the edge leaving node through handle.
func (e *Engine) nextFrom(r *run, node *domain.Node, handle string) string {
	edge, ok := domain.FirstEdgeFrom(r.flow, node.ID, handle)
	if !ok {
		return ""
	}
	return edge.Target
}

func (e *Engine) decode(node *domain.Node, out any) bool {
	if err := node.Decode(out); err != nil {
		e.logger.Warn("invalid node config", "node_id", node.ID, "err", err)
		return false
	}
	return true
}

// runAction delegates an api_action node to the dispatcher and merges the result.
// Failures are recorded as the _action_error variable and never stop the walk.
func (e *Engine) runAction(ctx context.Context, r *run, node *domain.Node) {
	var cfg domain.APIActionConfig
	if !e.decode(node, &cfg) || cfg.ActionType == "" {
		r.state.Variables[domain.VarActionError] = "api_action node without a valid action_type"
		return
	}
	if e.dispatcher == nil {
		r.state.Variables[domain.VarActionError] = "no action dispatcher configured"
		return
	}

	evt := &domain.ActionEvent{
		EventBase:  e.event(domain.EventActionCall, r.state),
		NodeID:     node.ID,
		ActionType: cfg.ActionType,
	}
	if e.hooks.OnActionCall != nil {
		e.hooks.OnActionCall(ctx, evt)
	}

	started := time.Now()
	result, err := e.dispatcher.Execute(ctx, cfg.ActionType, cfg.Config, snapshot(r.state.Variables))

	ret := &domain.ActionEvent{
		EventBase:  e.event(domain.EventActionReturn, r.state),
		NodeID:     node.ID,
		ActionType: cfg.ActionType,
		Duration:   time.Since(started),
		IsError:    err != nil,
	}
	if e.hooks.OnActionReturn != nil {
		e.hooks.OnActionReturn(ctx, ret)
	}

	if err != nil {
		e.logger.Warn("action failed",
			"node_id", node.ID,
			"action_type", cfg.ActionType,
			"correlation_id", r.state.CorrelationID,
			"err", err)
		r.state.Variables[domain.VarActionError] = err.Error()
		return
	}
	for k, v := range result {
		r.state.Variables[k] = v
	}
}

// snapshot hands collaborators a copy they cannot use to mutate the state.
func snapshot(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
