// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/competency-mapper/internal/catalog"
	"github.com/jonathan/competency-mapper/internal/narrative"
	"github.com/jonathan/competency-mapper/internal/scoring"
	"github.com/jonathan/competency-mapper/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// barWidth is the width of a score bar
	barWidth = 20
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads a line to the box's inner width, counting runes.
func pad(line string) string {
	width := boxWidth - 4
	if utf8.RuneCountInString(line) > width {
		runes := []rune(line)
		line = string(runes[:width-3]) + "..."
	}
	return line + strings.Repeat(" ", width-utf8.RuneCountInString(line))
}

func bar(score float64) string {
	filled := int(score*barWidth + 0.5)
	filled = max(0, min(barWidth, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// PrintReport outputs the domain scores, coverage and recommended jobs of a report.
func (p *Printer) PrintReport(r *types.ProfileReport) {
	if r == nil {
		return
	}
	p.PrintDomainScores(r)
	p.PrintRecommendedJobs(r.RecommendedJobs)
	p.PrintWarnings(r.Warnings)
}

// PrintDomainScores outputs one line per domain with its sub-scores.
func (p *Printer) PrintDomainScores(r *types.ProfileReport) {
	if r == nil || len(r.BlockScores) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profile:  %s\n", r.Profile))
	sb.WriteString(fmt.Sprintf("Coverage: %s %5.1f%%\n\n", bar(r.CoverageScore), r.CoverageScore*100))

	domains := r.SortedDomains()
	for i, d := range domains {
		sb.WriteString(fmt.Sprintf("%d. %s\n", d.DomainID, d.DomainName))
		sb.WriteString(fmt.Sprintf("   %s %5.1f%%\n", bar(d.Score), d.Score*100))
		if d.Error != "" {
			sb.WriteString(fmt.Sprintf("   zeroed: %s\n", d.Error))
		} else {
			sb.WriteString(fmt.Sprintf("   sem %.2f  self %.2f  tools %.2f  %s %.2f\n",
				d.SemanticScore, d.SelfRatingScore, d.ToolsScore, d.ChecklistMode, d.ChecklistScore))
		}
		if len(d.Detected) > 0 {
			count := min(len(d.Detected), 3)
			names := make([]string, count)
			for j := 0; j < count; j++ {
				names[j] = d.Detected[j].Name
			}
			sb.WriteString(fmt.Sprintf("   detected: %s", strings.Join(names, ", ")))
			if len(d.Detected) > count {
				sb.WriteString(fmt.Sprintf(" (+%d)", len(d.Detected)-count))
			}
			sb.WriteString("\n")
		}
		if i < len(domains)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("DOMAIN SCORES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecommendedJobs outputs the ranked job shortlist.
func (p *Printer) PrintRecommendedJobs(jobs []types.RecommendedJob) {
	if len(jobs) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(jobs), maxItemsToShow)
	for i := 0; i < count; i++ {
		job := jobs[i]
		sb.WriteString(fmt.Sprintf("#%d  %s (%s)\n", job.Rank, job.Title, job.JobID))
		sb.WriteString(fmt.Sprintf("    Match: %.1f%%\n", job.Score))
		if len(job.BoostedCompetencies) > 0 {
			sb.WriteString(fmt.Sprintf("    Evidenced: %s\n", strings.Join(job.BoostedCompetencies, ", ")))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(jobs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more jobs", len(jobs)-maxItemsToShow))
	}

	p.printBox("RECOMMENDED JOBS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintWarnings outputs report warnings, if any.
func (p *Printer) PrintWarnings(warnings []string) {
	if len(warnings) == 0 {
		return
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = "⚠ " + w
	}
	p.printBox(fmt.Sprintf("WARNINGS (%d)", len(warnings)), strings.Join(lines, "\n"))
}

// PrintNarratives outputs generated plan and bio texts.
func (p *Printer) PrintNarratives(results []narrative.Result) {
	for _, r := range results {
		title := "PROGRESSION PLAN"
		if r.Kind == narrative.KindBio {
			title = "PROFESSIONAL BIO"
		}
		p.printBox(fmt.Sprintf("%s [%s]", title, r.Source), wrap(r.Text, boxWidth-4))
	}
}

// PrintCatalogStats outputs table counts per domain.
func (p *Printer) PrintCatalogStats(domains []types.Domain, stats catalog.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Competencies: %d\n", stats.Competencies))
	sb.WriteString(fmt.Sprintf("Jobs:         %d\n\n", stats.Jobs))
	for _, d := range domains {
		sb.WriteString(fmt.Sprintf("  %d. %-40s %3d\n", d.ID, d.Name, stats.PerDomain[d.ID]))
	}
	p.printBox("CATALOG", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProfiles outputs the weights of every scoring profile.
func (p *Printer) PrintProfiles(profiles []scoring.Profile) {
	if len(profiles) == 0 {
		return
	}
	sorted := make([]scoring.Profile, len(profiles))
	copy(sorted, profiles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var sb strings.Builder
	for i, prof := range sorted {
		w := prof.Weights
		sb.WriteString(fmt.Sprintf("%s (v%s)\n", prof.Name, prof.Version))
		sb.WriteString(fmt.Sprintf("  weights: sem %.2f self %.2f tools %.2f checklist %.2f\n",
			w.Semantic, w.SelfRating, w.Tools, w.Checklist))
		sb.WriteString(fmt.Sprintf("  threshold %.2f, top %d, tools %s, checklist %s\n",
			prof.Threshold, prof.TopN, prof.Tools.Denominator, prof.Checklist.Mode))
		if i < len(sorted)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("SCORING PROFILES", strings.TrimSuffix(sb.String(), "\n"))
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) string {
	var out []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
