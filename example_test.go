package chatflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/conversation"
	"github.com/aretw0/chatflow/pkg/dsl"
)

// ExampleNew shows a keyword flow collecting one answer.
func ExampleNew() {
	flow := dsl.New("greeting", "acme").
		OnKeywords("hello").
		Trigger("start").Go("ask").Then().
		Ask("ask", "What is your name?").SaveTo("name").Go("bye").Then().
		End("bye", "Nice to meet you, {{name}}!").Then().
		MustBuild()

	bot, err := chatflow.New(memory.NewFlowRepository(*flow))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	for _, text := range []string{"hello there", "Ana"} {
		out, err := bot.HandleMessage(ctx, conversation.InboundMessage{
			TenantID:       "acme",
			ConversationID: "c1",
			Text:           text,
		})
		if err != nil {
			log.Fatal(err)
		}
		for _, m := range out.Messages {
			fmt.Println(m.Text)
		}
	}

	// Output:
	// What is your name?
	// Nice to meet you, Ana!
}
