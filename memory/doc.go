// Package memory holds conversation state for the shop assistant.
//
// Model:
//   - A Conversation is an ordered transcript: system, user, assistant and tool messages.
//   - An assistant message carrying tool calls is answered by one tool message per call,
//     in call order, before the next completion request.
//   - History lives in process only; nothing is written to disk.
package memory
