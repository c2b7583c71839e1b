/*
Package ports defines the driven ports (interfaces) for the turnstack runtime.

These interfaces decouple the dialog stack from external implementations, allowing
the same router to run against various storage backends and lock managers.

# Key Interfaces

  - StateStore: Responsible for persisting and loading dialog stack snapshots.
  - DistributedLocker: Provides distributed locking for serializing turns of one conversation.
*/
package ports
