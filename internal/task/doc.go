// Package task parses and serializes incremental task lines.
//
// An incremental task is a Markdown checkbox line carrying the incremental
// tag, a description, a progress counter and an identifier:
//
//	- [ ] #task/incr Read book 🔁 chapters 0/5 ⛔ abc123
//
// Generating a task produces the parent line plus one indented child line per
// remaining increment. The first child references the parent's id:
//
//	- [ ] #task/incr Read book 🔁 chapters 0/3 ⛔ abc123
//		- [ ] #task Read book - chapters 1 🆔 abc123
//		- [ ] #task Read book - chapters 2
//
// Markers:
//
//	🔁  increment unit and progress (current/total)
//	⛔  task id
//	🆔  comma separated ids this task depends on
//
// Each marker may be followed by the emoji variation selector U+FE0F.
//
// Decoding is tolerant. A line without markers decodes to zero values rather
// than an error, so a malformed task is still tracked with default counters.
package task
