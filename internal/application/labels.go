package application

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StatusLabel turns a stored status such as "in_progress" into "In Progress".
func StatusLabel(status string) string {
	// Casers carry state, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(status, "_", " "))
}
