/*
Package dsl provides a fluent builder for constructing flows in Go.

It is the programmatic counterpart of flow files: useful for tests, templates
and flows generated at runtime. Build validates the result with domain.Validate,
so a built flow can be handed directly to a flow repository.

Example usage:

	flow, err := dsl.New("booking", "acme").
		Name("Table booking").
		OnKeywords("book", "reserva").
		Trigger("start").Go("name").Then().
		Ask("name", "What is your name?").SaveTo("name").Go("size").Then().
		Buttons("size", "Table for how many, {{name}}?").SaveTo("guests").
		Option("Two", "2", "done").
		Option("Four", "4", "done").Then().
		End("done", "Booked for {{guests}}!").Then().
		Build()
*/
package dsl
