// Package extract copies one track's raw audio off the disc into a WAVE
// file, reading in fixed-size chunks and emitting "NN%" progress tokens.
package extract
