package netmd

import "strings"

const maxGroupTitle = 25

// MakeGroupTitle derives a short group name from a "Artist - Album" disc
// title: the album part, cut before edition suffixes such as "(Remastered)"
// and limited to 25 characters at a word boundary.
func MakeGroupTitle(discTitle string) string {
	tok := discTitle
	if pos := strings.IndexByte(discTitle, '-'); pos >= 0 {
		tok = discTitle[pos+1:]
	}
	tok = strings.TrimLeft(tok, " \t")

	if pos := strings.IndexAny(tok, "([{-/<>"); pos > 5 {
		tok = tok[:pos]
	}
	tok = strings.TrimRight(tok, " \t")

	if len(tok) > maxGroupTitle {
		if pos := strings.LastIndexAny(tok[:maxGroupTitle+1], " \t"); pos >= 0 {
			tok = tok[:pos]
		}
	}
	return tok
}
