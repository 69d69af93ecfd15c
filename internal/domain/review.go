package domain

import (
	"fmt"
	"time"
)

// ReviewFiling describes a submission still pending decision, sourced from an
// unstructured feed. The feed has no stable per-record key, so identity is
// derived from the ingredient/applicant/period composite.
type ReviewFiling struct {
	IngredientName  string    `json:"ingredientName"`
	Applicant       string    `json:"applicant"`
	TherapeuticArea string    `json:"therapeuticArea"`
	Period          string    `json:"period"` // e.g. "2026-07"
	SubmittedAt     time.Time `json:"submittedAt"`
	Feed            Source    `json:"feed"`
}

func (f ReviewFiling) NoveltyKey() string {
	return fmt.Sprintf("%s|%s|%s", f.IngredientName, f.Applicant, f.Period)
}

func (f ReviewFiling) EventTime() time.Time { return f.SubmittedAt }
