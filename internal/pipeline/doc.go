// Package pipeline runs the three concurrent stages of a rip: extraction on
// the caller's goroutine, then external encoding and MiniDisc transfer on
// their own goroutines, linked by FIFO stage queues.
//
// All shared state lives in a Context. Extraction pushes finished tracks
// onto ToEncode and marks it completed after the last track; the encode
// stage forwards every job to ToTransfer and marks that completed when its
// input drains. Run returns once both consumers have exited.
package pipeline
