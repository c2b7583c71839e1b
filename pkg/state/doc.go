/*
Package state implements the persisted-state accessor the dialog stack reads and writes.

An Accessor loads a conversation's dialog stack snapshot at the start of a turn and stores
it back when a top-level stack operation succeeds. It holds a reference to a
ports.StateStore but never owns its lifecycle.
*/
package state
