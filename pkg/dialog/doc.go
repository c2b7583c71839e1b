/*
Package dialog implements the dialog stack a turn router drives.

A Set is a registry of dialogs. Binding a Set to a turn with CreateContext loads the
conversation's persisted stack and returns a Context, which begins, continues, ends,
replaces and cancels dialog instances on that stack. Only the root Context writes the
snapshot back, and only after an outermost operation succeeds, so a failed turn never
changes what is stored.

Component runs a nested stack inside one frame of its parent and exposes its begin and
continue behavior as ComponentHooks. Waterfall and TextPrompt are the building blocks
applications use for multi-turn exchanges.
*/
package dialog
