/*
Package block implements the polled state machine shared by every forge block.

A block is a Unit: a Tracker (identity, state, result, listeners, resolved
lines) composed with a type-specific Body. The host scheduler calls Run once
per tick. Each tick first runs the base step, which advances
created -> ready -> running and notifies on every transition, then executes
the Body's Step if the block is running.

# Notification

Every transition produces exactly one domain.StateChangeEvent. The Body's own
OnTransition callback is invoked first, then each external listener in
registration order, synchronously and before Run returns. Listener calls are
isolated from each other: a failing or panicking listener does not prevent the
others from being notified, and the failures are aggregated into the error
returned by Run (see ListenerOnly).

# Completion

A Body finishes by calling Tracker.SetState with domain.StateDone and usually
reacts to the done edge by calling Tracker.GoFurtherNormal, which asks the
host Flow to activate successors along normal lines.
*/
package block
