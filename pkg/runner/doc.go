/*
Package runner drives a conversation from a terminal or a pipe.

It reads one user message at a time through an IOHandler, hands it to the
conversation processor as a single conversation, and prints the resulting
messages. It is the local counterpart of the HTTP transport and is used to try
flows before they reach a channel.

# Key Components

  - Runner: the read, process, print loop.
  - TextHandler: interactive terminal I/O with enumerated quick replies.
  - JSONHandler: JSON-Lines I/O for scripted tests.

# Usage

	r := runner.New(processor,
		runner.WithTenant("acme"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
