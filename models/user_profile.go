package models

// RawCategory is a profile section as stored by the backend.
type RawCategory struct {
	Name    string      `dynamodbav:"name" json:"name"`
	Color   string      `dynamodbav:"color,omitempty" json:"color,omitempty"`
	Prompts []RawPrompt `dynamodbav:"prompts,omitempty" json:"prompts,omitempty"`
}

// RawPrompt is a prompt as stored by the backend.
type RawPrompt struct {
	Question string `dynamodbav:"question" json:"question"`
	Answer   string `dynamodbav:"answer,omitempty" json:"answer,omitempty"`
	HasAudio bool   `dynamodbav:"hasAudio,omitempty" json:"hasAudio,omitempty"`
}

// RawProfile is a user profile as returned by CandidateSource.Discover
type RawProfile struct {
	UserID     string            `dynamodbav:"userId" json:"userId"`                             // ✅ Partition Key
	Name       string            `dynamodbav:"name,omitempty" json:"name,omitempty"`             // Display name
	DOB        string            `dynamodbav:"dob,omitempty" json:"dob,omitempty"`               // Date of Birth, YYYY-MM-DD
	Color      string            `dynamodbav:"color,omitempty" json:"color,omitempty"`           // Accent color hint
	Gender     string            `dynamodbav:"gender,omitempty" json:"gender,omitempty"`         // Gender
	Categories []RawCategory     `dynamodbav:"categories,omitempty" json:"categories,omitempty"` // Prompt sections
	Lifestyle  map[string]string `dynamodbav:"lifestyle,omitempty" json:"lifestyle,omitempty"`   // Facet -> value
	Online     bool              `dynamodbav:"online,omitempty" json:"online,omitempty"`         // Presence flag
}
