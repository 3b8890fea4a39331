// Package narrative produces the career progression plan and professional bio
// that accompany a profile report. Text comes from a Generator, is cached on
// disk by report signature and falls back to canned text on any failure.
package narrative

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"

	"github.com/jonathan/competency-mapper/internal/types"
)

// Kind names a narrative.
type Kind string

const (
	// KindPlan is the progression plan built from the weakest domains.
	KindPlan Kind = "plan"
	// KindBio is the executive-summary bio built from the strongest domains.
	KindBio Kind = "bio"
)

// Kinds lists every narrative kind.
var Kinds = []Kind{KindPlan, KindBio}

// digestSize is how many strengths and weaknesses a digest carries.
const digestSize = 3

// DomainSummary is one domain of a digest.
type DomainSummary struct {
	DomainID int     `json:"domain_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

// Digest is the part of a report a narrative is written from.
type Digest struct {
	Coverage   float64         `json:"coverage"`
	Strengths  []DomainSummary `json:"strengths"`
	Weaknesses []DomainSummary `json:"weaknesses"`
	TargetJob  string          `json:"target_job"`
	// TargetScore is the rank-1 job's match percentage.
	TargetScore float64 `json:"target_score"`
}

// NewDigest summarizes a report: the three strongest domains by score, the
// three weakest, and the rank-1 job. Ties keep domain id order.
func NewDigest(r *types.ProfileReport) Digest {
	domains := r.SortedDomains()
	summaries := make([]DomainSummary, len(domains))
	for i, d := range domains {
		summaries[i] = DomainSummary{DomainID: d.DomainID, Name: d.DomainName, Score: d.Score}
	}

	strengths := make([]DomainSummary, len(summaries))
	copy(strengths, summaries)
	sort.SliceStable(strengths, func(i, j int) bool { return strengths[i].Score > strengths[j].Score })

	weaknesses := make([]DomainSummary, len(summaries))
	copy(weaknesses, summaries)
	sort.SliceStable(weaknesses, func(i, j int) bool { return weaknesses[i].Score < weaknesses[j].Score })

	d := Digest{
		Coverage:   r.CoverageScore,
		Strengths:  strengths[:min(digestSize, len(strengths))],
		Weaknesses: weaknesses[:min(digestSize, len(weaknesses))],
	}
	if job, ok := r.TopJob(); ok {
		d.TargetJob = job.Title
		d.TargetScore = job.Score
	}
	return d
}

// Signature is the cache key of a narrative: a sha256 over the kind and the
// digest with scores rounded to one decimal, so similar profiles share text.
func (d Digest) Signature(kind Kind) string {
	canonical := Digest{
		Coverage:    round1(d.Coverage),
		Strengths:   roundAll(d.Strengths),
		Weaknesses:  roundAll(d.Weaknesses),
		TargetJob:   d.TargetJob,
		TargetScore: math.Round(d.TargetScore),
	}
	// struct fields marshal in declaration order
	data, _ := json.Marshal(canonical)

	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{'\n'})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func roundAll(in []DomainSummary) []DomainSummary {
	out := make([]DomainSummary, len(in))
	for i, s := range in {
		out[i] = DomainSummary{DomainID: s.DomainID, Name: s.Name, Score: round1(s.Score)}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
