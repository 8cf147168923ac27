// Package component provides the pages of the todotoday web app. Pages are
// templ components; the *_templ.go files are generated from the .templ
// sources next to them.
package component

import "time"

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

func rfc3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// date formats a timestamp for display in the server's zone.
func date(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 15:04")
}
