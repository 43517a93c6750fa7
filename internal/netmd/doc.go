// Package netmd wraps netmd-cli: disc erase and title, track upload, group
// creation, and the list_json device report used for pre-flight checks.
package netmd
