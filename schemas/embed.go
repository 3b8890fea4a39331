// Package schemas embeds the JSON Schemas of the documents the tool reads and writes.
package schemas

import (
	"embed"
	"fmt"
)

// Schema file names.
const (
	Submission    = "submission.schema.json"
	ProfileReport = "profile_report.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Load returns the content of an embedded schema.
func Load(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("schema %s not embedded: %w", name, err)
	}
	return string(data), nil
}

// Names lists the embedded schemas.
func Names() []string {
	return []string{Submission, ProfileReport}
}
