/*
Package session serializes the turns of a conversation.

The turn router assumes that two turns of the same conversation never run at the same
time. Manager provides that guarantee: a reference-counted in-process mutex per
conversation, optionally backed by a distributed lock so that several replicas sharing
one store also take turns. Different conversations never block each other.
*/
package session
