// Package outreach implements the campaign state machine: initiating a
// broker outreach sequence, fanning out scheduled follow-ups, sweeping due
// steps, and cancelling the remainder of a sequence when a broker replies.
//
// The service holds no durable state. Step-1 uniqueness and sweep
// re-entrancy both rely on the repository's conditional-write primitives,
// never on in-memory locks.
package outreach
