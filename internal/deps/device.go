package deps

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// CheckDevice reports whether the optical drive node exists and is readable.
func CheckDevice(path string) Status {
	path = strings.TrimSpace(path)
	status := Status{
		Name:        "Optical drive",
		Command:     path,
		Description: "Source of the audio CD",
	}
	if path == "" {
		status.Detail = "device not configured"
		return status
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		status.Detail = fmt.Sprintf("cannot read %s: %v", path, err)
		return status
	}
	status.Available = true
	return status
}
