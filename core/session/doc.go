// Package session keeps the per-sender dialog state of the conversation engine.
// State lives in process memory for the lifetime of the process; each sender is
// guarded by its own lock so senders never wait on each other.
package session
