package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/competency-mapper/internal/llm"
	"github.com/jonathan/competency-mapper/internal/prompts"
)

// Generator writes one narrative from a digest.
type Generator interface {
	Generate(ctx context.Context, kind Kind, d Digest) (string, error)
}

// LLMGenerator renders the embedded prompts and sends them to an llm.Client.
type LLMGenerator struct {
	client llm.Client
}

// NewLLMGenerator wraps client.
func NewLLMGenerator(client llm.Client) *LLMGenerator {
	return &LLMGenerator{client: client}
}

// Model returns the model used for kind.
func (g *LLMGenerator) Model(kind Kind) string {
	return g.client.GetModel(tierFor(kind))
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, kind Kind, d Digest) (string, error) {
	prompt, err := Prompt(kind, d)
	if err != nil {
		return "", err
	}
	text, err := g.client.GenerateContent(ctx, prompt, tierFor(kind))
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", kind, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty %s from model", kind)
	}
	return text, nil
}

// Prompt renders the prompt for kind.
func Prompt(kind Kind, d Digest) (string, error) {
	target := d.TargetJob
	if target == "" {
		target = defaultJob
	}
	switch kind {
	case KindPlan:
		return prompts.Render(prompts.Narrative, "progression-plan", map[string]string{
			"Coverage":   percent(d.Coverage),
			"Weaknesses": bulletList(d.Weaknesses),
			"TargetJob":  target,
		})
	case KindBio:
		return prompts.Render(prompts.Narrative, "professional-bio", map[string]string{
			"Strengths":  bulletList(d.Strengths),
			"TargetJob":  target,
			"MatchScore": fmt.Sprintf("%.1f%%", d.TargetScore),
		})
	default:
		return "", fmt.Errorf("unknown narrative kind %q", kind)
	}
}

func tierFor(kind Kind) llm.ModelTier {
	if kind == KindBio {
		return llm.TierLite
	}
	return llm.TierStandard
}

func bulletList(domains []DomainSummary) string {
	if len(domains) == 0 {
		return "- (aucun domaine évalué)"
	}
	lines := make([]string, len(domains))
	for i, d := range domains {
		lines[i] = fmt.Sprintf("- **%s** : score actuel %s", d.Name, percent(d.Score))
	}
	return strings.Join(lines, "\n")
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
