// Package progress fuses the rip, encode and transfer output streams into a
// single status line.
//
// Each stage writes its raw output (tool chatter included) into a Stream.
// Aggregator polls the streams on a fixed interval, pulls the latest "NN%"
// token out of each with ExtractPercent, and re-renders only when a value
// changed.
package progress
