package domain

// TurnStatus describes the state of the dialog stack after a turn.
type TurnStatus string

const (
	StatusEmpty     TurnStatus = "empty"     // No dialog was active when the turn began
	StatusWaiting   TurnStatus = "waiting"   // The active dialog is waiting for the next turn
	StatusComplete  TurnStatus = "complete"  // The last dialog on the stack ended
	StatusCancelled TurnStatus = "cancelled" // The stack was cancelled
)

// TurnResult is the outcome of a begin/continue operation.
type TurnResult struct {
	Status TurnStatus `json:"status"`
	Result any        `json:"result,omitempty"`
}

// EndOfTurn is returned by dialogs that are waiting for user input.
var EndOfTurn = TurnResult{Status: StatusWaiting}

// EndReason explains why a dialog instance was ended.
type EndReason string

const (
	ReasonEndCalled     EndReason = "end_called"
	ReasonReplaceCalled EndReason = "replace_called"
	ReasonCancelCalled  EndReason = "cancel_called"
)
