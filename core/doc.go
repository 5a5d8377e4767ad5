// Package core defines the shared vocabulary of the framework: conversation
// turns, tool calls and turn results exchanged between the agent router, the
// dispatch executor and the memory store. It carries no behavior beyond
// constructors and small helpers so every other package can depend on it
// without cycles.
package core
