package services

import (
	"fmt"
	"strings"
	"time"

	"vibin_client/models"
	"vibin_client/utils"
)

// NewCandidate converts a fetched profile into a Candidate. Missing id, name
// or a usable date of birth is ErrIncompleteData; no partial Candidate is
// returned. Prompts without a question are dropped.
func NewCandidate(raw models.RawProfile, now time.Time) (models.Candidate, error) {
	if strings.TrimSpace(raw.UserID) == "" {
		return models.Candidate{}, fmt.Errorf("%w: profile has no user id", ErrIncompleteData)
	}
	if strings.TrimSpace(raw.Name) == "" {
		return models.Candidate{}, fmt.Errorf("%w: profile %s has no name", ErrIncompleteData, raw.UserID)
	}
	age, err := utils.AgeFromDOB(models.DateOfBirthLayout, raw.DOB, now)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("%w: profile %s: %v", ErrIncompleteData, raw.UserID, err)
	}

	categories := make([]models.Category, 0, len(raw.Categories))
	for _, rc := range raw.Categories {
		category := models.Category{Name: rc.Name, Color: rc.Color, Prompts: []models.Prompt{}}
		for _, rp := range rc.Prompts {
			if strings.TrimSpace(rp.Question) == "" {
				continue
			}
			category.Prompts = append(category.Prompts, models.Prompt{
				Question: rp.Question,
				Answer:   rp.Answer,
				HasAudio: rp.HasAudio,
			})
		}
		categories = append(categories, category)
	}

	return models.Candidate{
		ID:          raw.UserID,
		Name:        raw.Name,
		Age:         age,
		AccentColor: raw.Color,
		Categories:  categories,
		Lifestyle:   models.LifestyleFromMap(raw.Lifestyle),
	}, nil
}
