/*
Package turnstack is a turn-dispatch runtime for stack-based conversational dialogs.

For every inbound turn, a Router decides whether the dialog already in progress
resumes or a fresh top-level dialog starts, and in both cases hands the turn to one
application-supplied TurnHandler before any built-in dialog logic runs. The handler
never has to tell a first turn from a later one.

# Concept

A conversation's dialog stack is persisted through a state.Accessor. The Router owns
the root frame of that stack under its own id (default "main"). On each turn it
continues the active dialog; if the stack is empty it begins itself. Both paths end in
TurnHandler.OnRunTurn, which starts or continues the application's child dialogs.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/turnstack"
		"github.com/aretw0/turnstack/pkg/adapters/memory"
		"github.com/aretw0/turnstack/pkg/dialog"
		"github.com/aretw0/turnstack/pkg/domain"
		"github.com/aretw0/turnstack/pkg/state"
	)

	func main() {
		accessor, _ := state.NewConversationState(memory.NewStore(), "")

		router, err := turnstack.New(accessor, turnstack.TurnHandlerFunc(
			func(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error) {
				if inner.ActiveDialog() != nil {
					return inner.ContinueDialog(ctx)
				}
				return inner.BeginDialog(ctx, "ask", dialog.PromptOptions{Prompt: "Name?"})
			}))
		if err != nil {
			log.Fatal(err)
		}
		_ = router.AddDialog(dialog.NewTextPrompt("ask", nil))

		tc := dialog.NewTurnContext(domain.NewMessage("conv-1", "hi"))
		res, err := router.Run(context.Background(), tc)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.Status, tc.Responses())
	}

Turns of one conversation must be processed one at a time; session.Manager provides
that serialization, including across replicas with a distributed locker.
*/
package turnstack
