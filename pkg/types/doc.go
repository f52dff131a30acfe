// Package types defines the board entities (Board, Column, Task, Subtask,
// Rule), the Priority union, ordering helpers, and the standard error types
// shared by the mutation engine, codec, and persistence layers.
package types
