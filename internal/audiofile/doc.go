// Package audiofile writes the RIFF/WAVE containers handed to the transfer
// tool: canonical 16-bit stereo PCM for ripped tracks and the ATRAC3 variant
// for pre-encoded LP2/LP4 payloads.
package audiofile
