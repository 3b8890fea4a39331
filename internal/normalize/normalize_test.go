package normalize

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/competency-mapper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var domains = []types.Domain{
	{ID: 1, Name: "Data Analysis & Visualization"},
	{ID: 2, Name: "Machine Learning Supervisé"},
}

func decode(t *testing.T, doc string) *Submission {
	t.Helper()
	sub, err := DecodeSubmission(strings.NewReader(doc))
	require.NoError(t, err)
	return sub
}

func malformed(t *testing.T, err error) MalformedResponses {
	t.Helper()
	var m MalformedResponses
	require.True(t, errors.As(err, &m), "expected MalformedResponses, got %v", err)
	return m
}

func TestBlock_Normalize(t *testing.T) {
	sub := decode(t, `{
		"schema": "block",
		"responses": {
			"bloc1": {
				"q1_likert": 4,
				"q2_text": "  I build dashboards  ",
				"q3_tools": ["SQL", "Excel", "SQL", " "],
				"q4_competences": ["Data cleaning", "Aucune"],
				"experience": "three years as analyst"
			},
			"bloc2": {
				"q5_likert": 2,
				"q8_algorithmes": ["Random Forest"],
				"q1_likert": 5
			}
		}
	}`)

	got, err := sub.Normalize(domains)
	require.NoError(t, err)
	require.Len(t, got, 2)

	b1 := got[1]
	assert.Equal(t, 4, b1.SelfRating)
	assert.Equal(t, "I build dashboards", b1.FreeText)
	assert.Equal(t, []string{"SQL", "Excel"}, b1.Tools)
	assert.Equal(t, []string{"Data cleaning", "Aucune"}, b1.Tasks)
	assert.Equal(t, "three years as analyst", b1.Narrative)

	b2 := got[2]
	assert.Equal(t, 2, b2.SelfRating, "questions numbered for another block are ignored")
	assert.Equal(t, []string{"Random Forest"}, b2.Tasks)
	assert.Empty(t, b2.FreeText)
}

func TestBlock_MissingBlockIsEmpty(t *testing.T) {
	got, err := Block{}.Normalize(map[string]any{}, domains)
	require.NoError(t, err)
	r1, r2 := got[1], got[2]
	assert.True(t, r1.IsEmpty())
	assert.True(t, r2.IsEmpty())
	assert.Equal(t, 2, got[2].DomainID)
}

func TestQuestion_Normalize(t *testing.T) {
	sub := decode(t, `{
		"schema": "question",
		"responses": {
			"q1_likert": 3,
			"q2_text": "pandas and seaborn",
			"q3_tools": ["Plotly"],
			"q4_tasks": ["Reporting"],
			"q5_likert": 5,
			"q6_experience": "Trained gradient boosting models",
			"q8_competences": ["XGBoost tuning"],
			"q41_likert": 1,
			"comment": "ignored"
		}
	}`)

	got, err := sub.Normalize(domains)
	require.NoError(t, err)

	assert.Equal(t, 3, got[1].SelfRating)
	assert.Equal(t, "pandas and seaborn", got[1].FreeText)
	assert.Equal(t, []string{"Plotly"}, got[1].Tools)
	assert.Equal(t, []string{"Reporting"}, got[1].Tasks)

	assert.Equal(t, 5, got[2].SelfRating)
	assert.Equal(t, "Trained gradient boosting models", got[2].Narrative)
	assert.Equal(t, []string{"XGBoost tuning"}, got[2].Tasks)
	assert.NotContains(t, got, 11)
}

func TestAdaptive_Normalize(t *testing.T) {
	sub := decode(t, `{
		"schema": "adaptive",
		"responses": {
			"q1_parcours": "Analyst moving to ML",
			"q2_domaines": ["Data Analysis & Visualization", "machine learning supervisé"],
			"q3_niveaux": {"data analysis & visualization": 4, "2": 2, "Unknown": 5},
			"q4_outils": ["SQL", "Scikit-learn"],
			"q5_experiences": {"Machine Learning Supervisé": "Built churn models"}
		}
	}`)

	got, err := sub.Normalize(domains)
	require.NoError(t, err)

	assert.Equal(t, 4, got[1].SelfRating)
	assert.Equal(t, 2, got[2].SelfRating)
	for _, id := range []int{1, 2} {
		assert.Equal(t, "Analyst moving to ML", got[id].FreeText)
		assert.Equal(t, []string{"SQL", "Scikit-learn"}, got[id].Tools)
	}
	assert.Empty(t, got[1].Narrative)
	assert.Equal(t, "Built churn models", got[2].Narrative)
}

func TestAdaptive_ToolsNotShared(t *testing.T) {
	got, err := Adaptive{}.Normalize(map[string]any{"q4_outils": []any{"SQL"}}, domains)
	require.NoError(t, err)

	resp := got[1]
	resp.Tools[0] = "mutated"
	assert.Equal(t, "SQL", got[2].Tools[0])
}

func TestAdaptive_GlobalFieldTaintsEveryDomain(t *testing.T) {
	got, err := Adaptive{}.Normalize(map[string]any{"q1_parcours": 42}, domains)
	m := malformed(t, err)

	assert.Len(t, m, 2)
	assert.Len(t, m.ForDomain(1), 1)
	assert.Equal(t, "q1_parcours", m.ForDomain(2)[0].Field)
	assert.Len(t, got, 2)
}

func TestNormalize_MalformedFields(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		doc    string
		domain int
		field  string
	}{
		{
			name:   "rating above range",
			schema: SchemaBlock,
			doc:    `{"bloc1": {"q1_likert": 6}}`,
			domain: 1,
			field:  "bloc1.q1_likert",
		},
		{
			name:   "negative rating",
			schema: SchemaQuestion,
			doc:    `{"q5_likert": -1}`,
			domain: 2,
			field:  "q5_likert",
		},
		{
			name:   "fractional rating",
			schema: SchemaQuestion,
			doc:    `{"q1_likert": 2.5}`,
			domain: 1,
			field:  "q1_likert",
		},
		{
			name:   "rating as string",
			schema: SchemaAdaptive,
			doc:    `{"q3_niveaux": {"2": "high"}}`,
			domain: 2,
			field:  "q3_niveaux.2",
		},
		{
			name:   "tools not a list",
			schema: SchemaBlock,
			doc:    `{"bloc2": {"q7_tools": "PyTorch"}}`,
			domain: 2,
			field:  "bloc2.q7_tools",
		},
		{
			name:   "list with non string item",
			schema: SchemaQuestion,
			doc:    `{"q4_tasks": ["ok", 3]}`,
			domain: 1,
			field:  "q4_tasks",
		},
		{
			name:   "block not an object",
			schema: SchemaBlock,
			doc:    `{"bloc1": ["x"]}`,
			domain: 1,
			field:  "bloc1",
		},
		{
			name:   "text not a string",
			schema: SchemaBlock,
			doc:    `{"bloc1": {"q2_text": {"a": 1}}}`,
			domain: 1,
			field:  "bloc1.q2_text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := json.NewDecoder(strings.NewReader(tt.doc))
			dec.UseNumber()
			var raw map[string]any
			require.NoError(t, dec.Decode(&raw))

			n, err := ForSchema(tt.schema)
			require.NoError(t, err)
			got, err := n.Normalize(raw, domains)

			m := malformed(t, err)
			require.Len(t, m, 1)
			assert.Equal(t, tt.domain, m[0].DomainID)
			assert.Equal(t, tt.field, m[0].Field)

			var single *MalformedResponseError
			assert.True(t, errors.As(err, &single))
			assert.Len(t, got, len(domains), "readable domains are still returned")
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want Schema
	}{
		{name: "block", raw: map[string]any{"bloc1": map[string]any{}}, want: SchemaBlock},
		{name: "question", raw: map[string]any{"q2_text": "x"}, want: SchemaQuestion},
		{name: "adaptive", raw: map[string]any{"q1_parcours": "x", "q4_outils": []any{}}, want: SchemaAdaptive},
		{name: "empty", raw: map[string]any{}, want: SchemaBlock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.raw))
		})
	}
}

func TestDecodeSubmission(t *testing.T) {
	sub := decode(t, `{"responses": {"q1_parcours": "hello"}}`)
	assert.Equal(t, SchemaAdaptive, sub.Schema)

	empty := decode(t, `{}`)
	assert.Equal(t, SchemaBlock, empty.Schema)
	assert.NotNil(t, empty.Responses)

	_, err := DecodeSubmission(strings.NewReader(`{"schema": "legacy", "responses": {}}`))
	assert.ErrorContains(t, err, "unknown submission schema")

	_, err = DecodeSubmission(strings.NewReader(`not json`))
	assert.ErrorContains(t, err, "failed to decode submission")
}

func TestForSchema(t *testing.T) {
	for _, s := range Schemas {
		n, err := ForSchema(s)
		require.NoError(t, err)
		assert.Equal(t, s, n.Schema())
	}
	_, err := ForSchema("nope")
	assert.Error(t, err)
}

func TestValidateResponses(t *testing.T) {
	out := map[int]types.UserResponse{
		1: {DomainID: 1, SelfRating: 3, Tools: []string{"SQL"}},
		2: {DomainID: 2, Tools: []string{"SQL", ""}},
	}

	errs := validateResponses(out, domains, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].DomainID)
	assert.Equal(t, "Tools[1]", errs[0].Field)
	assert.Contains(t, errs[0].Reason, `"required"`)

	// domains that already failed a field are not checked twice
	prior := MalformedResponses{{DomainID: 2, Field: "bloc2", Reason: "expected object"}}
	assert.Equal(t, prior, validateResponses(out, domains, prior))
}

func TestNormalize_OutputPassesValidation(t *testing.T) {
	sub := decode(t, `{"schema": "question", "responses": {"q1_likert": 5, "q3_tools": ["SQL", ""], "q5_likert": 0}}`)
	got, err := sub.Normalize(domains)
	require.NoError(t, err)
	for _, d := range domains {
		resp := got[d.ID]
		assert.NoError(t, resp.Validate(), "domain %d", d.ID)
	}
}
