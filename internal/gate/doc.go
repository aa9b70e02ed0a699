// Package gate decides, once per user and calendar day, whether a mood check-in is required
// and owns the auto-save fallback for a pending check-in.
//
// A [Gate] is shared by all users. Each visit to the app creates an [Activation] with
// [Gate.Activate]; the activation evaluates the user's latest [models.MoodEntry], arms a
// one-shot timer when a check-in is needed, and commits at most one entry through a
// single-commit latch, whichever of [Activation.Submit] or the timer gets there first.
// [Activation.Dispose] tears the activation down and guarantees the timer never writes.
//
// Overlapping visits by one user do not stack: a new activation supersedes (disposes) the
// user's unfinished one, and its store read waits for any write the old one has in flight.
//
// Activation lifecycle:
//
//	Unevaluated -> CheckedIn              (entry already exists today)
//	Unevaluated -> Armed                  (no entry today, timer started)
//	Armed       -> Settled                (Submit succeeded or timer saved the default)
//	Armed       -> Failed                 (auto-save write failed)
//	Unevaluated | Armed -> Disposed       (teardown, or superseded by a newer visit)
package gate
