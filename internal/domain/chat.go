package domain

import "time"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is a single entry in a session's conversation log.
type ChatTurn struct {
	Role      string    `json:"role" dynamodbav:"role"`
	Text      string    `json:"text" dynamodbav:"text"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp,unixtime"`
}

// Reference is a knowledge-base citation surfaced during retrieval.
type Reference struct {
	Text string `json:"text"`
	URI  string `json:"uri,omitempty"`
}

// Feedback verdicts a user can attach to an assistant turn.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)
