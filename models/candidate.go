package models

// Prompt is one question on a profile, answered with text, audio or both.
type Prompt struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	HasAudio bool   `json:"hasAudio,omitempty"`
}

// Category groups prompts under a named, colored section of a profile.
type Category struct {
	Name    string   `json:"name"`
	Color   string   `json:"color,omitempty"`
	Prompts []Prompt `json:"prompts"`
}

// Unspecified marks a lifestyle facet the user did not fill in.
const Unspecified = ""

// Lifestyle holds the fixed set of lifestyle facets. An empty facet is
// Unspecified.
type Lifestyle struct {
	Drinking  string `json:"drinking,omitempty"`
	Smoking   string `json:"smoking,omitempty"`
	Cannabis  string `json:"cannabis,omitempty"`
	Workout   string `json:"workout,omitempty"`
	Pets      string `json:"pets,omitempty"`
	Children  string `json:"children,omitempty"`
	Diet      string `json:"diet,omitempty"`
	Religion  string `json:"religion,omitempty"`
	Education string `json:"education,omitempty"`
}

// Lifestyle facet keys as they appear in RawProfile.Lifestyle.
const (
	FacetDrinking  = "drinking"
	FacetSmoking   = "smoking"
	FacetCannabis  = "cannabis"
	FacetWorkout   = "workout"
	FacetPets      = "pets"
	FacetChildren  = "children"
	FacetDiet      = "diet"
	FacetReligion  = "religion"
	FacetEducation = "education"
)

// LifestyleFromMap picks the known facets out of raw and ignores the rest.
func LifestyleFromMap(raw map[string]string) Lifestyle {
	return Lifestyle{
		Drinking:  raw[FacetDrinking],
		Smoking:   raw[FacetSmoking],
		Cannabis:  raw[FacetCannabis],
		Workout:   raw[FacetWorkout],
		Pets:      raw[FacetPets],
		Children:  raw[FacetChildren],
		Diet:      raw[FacetDiet],
		Religion:  raw[FacetReligion],
		Education: raw[FacetEducation],
	}
}

// Specified returns the facets that carry a concrete value, keyed like
// RawProfile.Lifestyle.
func (l Lifestyle) Specified() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		FacetDrinking:  l.Drinking,
		FacetSmoking:   l.Smoking,
		FacetCannabis:  l.Cannabis,
		FacetWorkout:   l.Workout,
		FacetPets:      l.Pets,
		FacetChildren:  l.Children,
		FacetDiet:      l.Diet,
		FacetReligion:  l.Religion,
		FacetEducation: l.Education,
	} {
		if v != Unspecified {
			out[k] = v
		}
	}
	return out
}

// Candidate is a discoverable profile as presented to a viewer. It is built
// once from a RawProfile and never changed afterwards.
type Candidate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Age         int        `json:"age"`
	AccentColor string     `json:"accentColor,omitempty"`
	Categories  []Category `json:"categories"`
	Lifestyle   Lifestyle  `json:"lifestyle"`
}
