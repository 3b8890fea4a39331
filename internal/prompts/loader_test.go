package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	prompt, err := Get(Narrative, "progression-plan")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.Weaknesses}}")
	assert.Contains(t, prompt, "{{.TargetJob}}")
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get(Narrative, "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestList(t *testing.T) {
	keys, err := List(Narrative)
	require.NoError(t, err)
	assert.Equal(t, []string{"professional-bio", "progression-plan"}, keys)
}

func TestFormat(t *testing.T) {
	result := Format("Hello {{.Name}}, welcome to {{.Company}}!", map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	})
	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", result)

	// Placeholder remains without data
	assert.Equal(t, "Hello {{.Name}}", Format("Hello {{.Name}}", nil))
}

func TestRender(t *testing.T) {
	out, err := Render(Narrative, "professional-bio", map[string]string{
		"Strengths":  "- Data Analysis (80%)",
		"TargetJob":  "Data Analyst",
		"MatchScore": "78.0%",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Data Analyst")
	assert.NotContains(t, out, "{{.")

	_, err = Render(Narrative, "professional-bio", map[string]string{"TargetJob": "x"})
	assert.ErrorContains(t, err, "unfilled placeholders")
}
