package domain

// DefaultRouterID is the dialog id a turn router registers itself under when none is given.
const DefaultRouterID = "main"

// DefaultStateProperty is the conversation state property holding the dialog stack.
const DefaultStateProperty = "DialogState"

// Instance state keys reserved by the built-in dialogs.
const (
	// KeyDialogs holds the nested stack of a component dialog.
	KeyDialogs = "dialogs"
	// KeyOptions holds the options a dialog was started with.
	KeyOptions = "options"
	// KeyStepIndex holds the current waterfall step.
	KeyStepIndex = "stepIndex"
	// KeyValues holds the values collected by a waterfall.
	KeyValues = "values"
)
