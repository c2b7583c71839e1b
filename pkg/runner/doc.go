/*
Package runner connects a turn router to the outside world.

# Key Components

  - Dispatcher: the inbound pipeline shared by every transport. It sanitizes the
    activity, serializes turns per conversation through session.Manager and collects
    the replies into a Reply.
  - Runner: an interactive chat loop for one conversation.
  - IOHandler: decouples how the loop reads and writes (TextHandler, JSONHandler).

# Usage

	d := runner.NewDispatcher(router, session.NewManager(store))
	r := runner.NewRunner(d,
		runner.WithConversationID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
