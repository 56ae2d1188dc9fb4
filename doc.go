/*
Package chatflow is a multi-tenant engine for scripted chatbot conversations.

Tenants design flows as graphs of nodes (questions, buttons, conditions,
api actions, item lists, handoffs) joined by edges. An inbound message either
advances the conversation's running flow or, when none is running, may start
the first active flow whose trigger matches.

The interpreter is stateless: every invocation receives the persisted
execution state and returns the next one, together with the messages the
channel adapter should send. Per conversation, only one message is processed
at a time.

# Architecture

The package layout is hexagonal:

  - pkg/domain: flows, nodes, execution state and messages.
  - pkg/ports: the interfaces adapters implement (stores, repositories, dispatcher).
  - internal/runtime: the step interpreter.
  - pkg/conversation: the per-message pipeline (load, step or trigger, persist).
  - pkg/adapters: memory, redis, badger, file, cache, postgres and http.

# Usage

	flows := memory.NewFlowRepository(welcome)

	bot, err := chatflow.New(flows,
		chatflow.WithStore(redis.New("localhost:6379", "", 0)),
		chatflow.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}

	out, err := bot.HandleMessage(ctx, conversation.InboundMessage{
		TenantID:       "acme",
		ConversationID: "wa:5511999990000",
		Text:           "hola",
	})
*/
package chatflow
