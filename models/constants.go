package models

// Interaction types recorded by a discovery action
const (
	InteractionTypeLike    = "like"
	InteractionTypeDislike = "dislike"
)

// Interaction statuses
const (
	StatusPending = "pending"
	StatusMatch   = "match"
)

// Match statuses
const (
	MatchStatusActive   = "active"
	MatchStatusArchived = "archived"
)

// Chat types
const (
	ChatTypePrivate = "private"
)

// Default DynamoDB table names. Overridable through config.
const (
	UserProfilesTable = "Users"
	InteractionsTable = "Interactions"
	MatchesTable      = "Matches"
	MessagesTable     = "Messages"
)

// DateOfBirthLayout is the wire layout for RawProfile.DOB.
const DateOfBirthLayout = "2006-01-02"
