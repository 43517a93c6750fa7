package cddb

import (
	"bufio"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Choice is one candidate match from a query response.
type Choice struct {
	// QueryToken is "genre+discid", ready for a read request.
	QueryToken  string
	Description string
}

// Genre returns the CDDB category of the match, title-cased for display.
func (c Choice) Genre() string {
	genre, _, _ := strings.Cut(c.QueryToken, "+")
	return cases.Title(language.English).String(genre)
}

// ParseChoices decodes a query response. 200 yields the single exact match;
// 210 and 211 yield one choice per listed match. Other codes yield nothing.
func ParseChoices(text string) []Choice {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}
	code, rest := statusCode(lines[0])

	switch code {
	case 200:
		if c, ok := parseResultLine(rest); ok {
			return []Choice{c}
		}
		return nil
	case 210, 211:
		var choices []Choice
		for _, line := range lines[1:] {
			if line == "" || line[0] == '.' || line[0] == '#' {
				continue
			}
			if c, ok := parseResultLine(line); ok {
				choices = append(choices, c)
			}
		}
		return choices
	default:
		return nil
	}
}

// parseResultLine splits "genre discid description".
func parseResultLine(line string) (Choice, bool) {
	line = strings.TrimLeft(line, " \t")
	genre, rest, ok := cutBlank(line)
	if !ok {
		return Choice{}, false
	}
	id, descr, ok := cutBlank(rest)
	if !ok {
		id, descr = rest, ""
	}
	if genre == "" || id == "" {
		return Choice{}, false
	}
	return Choice{QueryToken: genre + "+" + id, Description: strings.ReplaceAll(descr, "\r", "")}, true
}

func cutBlank(s string) (before, after string, found bool) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// ParseTitles collects DTITLE and TTITLEn values in order of appearance. The
// first '/' of each line becomes '-', then continuation lines for the same key
// are appended to it. found is false when no title lines exist, which is
// distinct from titles that are present but blank.
func ParseTitles(text string) (titles []string, found bool) {
	rec := parseRecord(text)
	if len(rec.keys) == 0 {
		return nil, false
	}
	titles = make([]string, 0, len(rec.keys))
	for _, k := range rec.keys {
		titles = append(titles, rec.values[k])
	}
	return titles, true
}

type record struct {
	keys   []string
	values map[string]string
}

func parseRecord(text string) record {
	rec := record{values: make(map[string]string)}
	for _, line := range splitLines(text) {
		if !strings.HasPrefix(line, "DTITLE") && !strings.HasPrefix(line, "TTITLE") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := rec.values[key]; !seen {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key] += strings.Replace(value, "/", "-", 1)
	}
	return rec
}

// trackIndex returns n for a TTITLEn key.
func trackIndex(key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(key, "TTITLE"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func statusCode(line string) (int, string) {
	head, rest, _ := cutBlank(strings.TrimSpace(line))
	code, err := strconv.Atoi(head)
	if err != nil {
		return 0, ""
	}
	return code, rest
}

func splitLines(text string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines
}
