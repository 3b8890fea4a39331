package types

import (
	"github.com/go-playground/validator/v10"
)

// MaxSelfRating is the top of the Likert self-rating scale.
const MaxSelfRating = 5

// UserResponse is the canonical, per-domain view of one questionnaire submission.
// It is produced by a normalizer and is read-only once analysis starts.
type UserResponse struct {
	DomainID   int      `json:"domain_id" validate:"gt=0"`
	SelfRating int      `json:"self_rating" validate:"gte=0,lte=5"`
	FreeText   string   `json:"free_text,omitempty"`
	Tools      []string `json:"tools,omitempty" validate:"dive,required"`
	Tasks      []string `json:"tasks,omitempty" validate:"dive,required"`
	Narrative  string   `json:"narrative,omitempty"`
}

// Validate validates the UserResponse using the validator.
func (r *UserResponse) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// IsEmpty reports whether the response carries no signal at all.
func (r *UserResponse) IsEmpty() bool {
	return r.SelfRating == 0 && r.FreeText == "" && len(r.Tools) == 0 &&
		len(r.Tasks) == 0 && r.Narrative == ""
}
