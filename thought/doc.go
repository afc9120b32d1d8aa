// Package thought implements the three cooperating reasoning stages of the
// router: the todo thought (a carried-forward checklist of sub-goals), the
// planning thought (freeform reasoning over the running history) and the
// structured thought (deterministic extraction of the planning text into a
// machine-actionable decision).
//
// The stages run strictly in that order each iteration; each consumes the
// output of the previous one. Only the structured stage decides anything - the
// planning stage narrates, never terminates.
package thought
