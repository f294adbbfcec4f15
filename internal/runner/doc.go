// Package runner drives one customer interaction: it asks the completion
// backend for the next step, dispatches requested tools, and feeds their
// results back until the model answers in text.
//
// Invariant:
//   - an assistant turn with tool calls is appended together with one tool
//     message per call, in call order, or not at all.
//
// Flow:
//
//	user(text) -> assistant(tool_calls) -> tool(result)... -> assistant(text)
package runner
