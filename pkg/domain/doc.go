/*
Package domain contains the core domain models of the turnstack runtime.

It defines the persisted shape of a conversation's dialog stack, the outcome of a
turn, the inbound activity, and the sentinel errors shared by every layer. This package
is kept pure and free of I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - DialogState: The serializable dialog stack snapshot stored per conversation.
  - DialogInstance: One frame on the stack (dialog id + private instance state).
  - TurnResult: The status/result pair returned from processing a turn.
  - Activity: The inbound conversational event that triggers a turn.
*/
package domain
