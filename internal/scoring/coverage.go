package scoring

import (
	"fmt"

	"github.com/jonathan/competency-mapper/internal/types"
)

// Coverage is the weighted mean of domain scores. A nil weight function gives
// every domain weight 1.
func Coverage(results []types.DomainScoreResult, weight func(domainID int) float64) (float64, error) {
	if len(results) == 0 {
		return 0, &ConfigError{Message: "coverage needs at least one domain"}
	}

	var num, den float64
	for _, r := range results {
		w := 1.0
		if weight != nil {
			w = weight(r.DomainID)
		}
		if w <= 0 {
			return 0, &ConfigError{Message: fmt.Sprintf("coverage weight for domain %d must be positive, got %v", r.DomainID, w)}
		}
		num += w * r.Score
		den += w
	}
	return clamp01(num / den), nil
}
