// Package prompts holds the embedded narrative prompt templates.
// Each JSON file maps a prompt key to a template with {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Narrative is the file holding the career narrative prompts.
const Narrative = "narrative.json"

//go:embed *.json
var promptFiles embed.FS

var loadAll = sync.OnceValues(func() (map[string]map[string]string, error) {
	entries, err := promptFiles.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt files: %w", err)
	}
	files := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		if path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := promptFiles.ReadFile(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", entry.Name(), err)
		}
		var prompts map[string]string
		if err := json.Unmarshal(data, &prompts); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", entry.Name(), err)
		}
		files[entry.Name()] = prompts
	}
	return files, nil
})

var placeholder = regexp.MustCompile(`\{\{\.[A-Za-z]+\}\}`)

// Get retrieves a prompt template by filename and key.
func Get(filename, key string) (string, error) {
	prompts, err := file(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := prompts[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// List returns the prompt keys of a file, sorted.
func List(filename string) ([]string, error) {
	prompts, err := file(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Format replaces {{.Key}} placeholders with values from data. Unknown
// placeholders are left in place.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{."+key+"}}", value)
	}
	return result
}

// Render formats a prompt and fails if any placeholder is left unfilled.
func Render(filename, key string, data map[string]string) (string, error) {
	template, err := Get(filename, key)
	if err != nil {
		return "", err
	}
	out := Format(template, data)
	if missing := placeholder.FindAllString(out, -1); len(missing) > 0 {
		return "", fmt.Errorf("prompt %s/%s has unfilled placeholders: %s", filename, key, strings.Join(missing, ", "))
	}
	return out, nil
}

func file(filename string) (map[string]string, error) {
	files, err := loadAll()
	if err != nil {
		return nil, err
	}
	prompts, ok := files[filename]
	if !ok {
		return nil, fmt.Errorf("failed to read prompt file %s: not embedded", filename)
	}
	return prompts, nil
}
