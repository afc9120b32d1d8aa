// Package core defines the shared data model of the router: declared tools,
// tool calls and their results, iteration records and the RouterProcess
// aggregate that carries the full state of one routed question.
//
// All types are plain serializable values. A RouterProcess is owned by exactly
// one engine run; it is advanced by appending iteration records and observers
// only ever see value snapshots, never a record under construction.
package core
