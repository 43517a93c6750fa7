package logging

import "strings"

// FormatSubject builds the "component [stage #track]" prefix used in console output.
func FormatSubject(component, stage, track string) string {
	component = strings.TrimSpace(component)
	stage = strings.TrimSpace(stage)
	track = strings.TrimSpace(track)

	var scope string
	switch {
	case stage != "" && track != "":
		scope = "[" + stage + " #" + track + "]"
	case stage != "":
		scope = "[" + stage + "]"
	case track != "":
		scope = "[#" + track + "]"
	}
	switch {
	case component != "" && scope != "":
		return component + " " + scope
	case component != "":
		return component
	default:
		return scope
	}
}
