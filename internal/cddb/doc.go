// Package cddb resolves disc and track titles from a CDDB server (gnudb by
// default).
//
// BuildQuery turns the disc layout into the standard query string,
// ParseChoices and ParseTitles decode the line-oriented responses, and
// Resolver ties the query, disambiguation, read and cache steps together.
package cddb
