// Package testutil provides shared fixtures for router tests: a canned course
// tool catalog in both raw and normalized form, and a scripted dispatch
// strategy that records its calls.
package testutil
