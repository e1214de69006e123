// Package history persists conversation snapshots. The gateway treats
// persistence as best-effort: a failed save is logged and the chat
// keeps working.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/fieldline/iotops/internal/domain"
)

// Record is one saved conversation snapshot. A new record is written
// per snapshot so the table doubles as an audit trail.
type Record struct {
	ID           string            `dynamodbav:"id" json:"id"`
	SessionID    string            `dynamodbav:"session_id" json:"session_id"`
	Conversation []domain.ChatTurn `dynamodbav:"conversation" json:"conversation"`
	Timestamp    time.Time         `dynamodbav:"timestamp,unixtime" json:"timestamp"`
	Feedback     map[string]string `dynamodbav:"feedback,omitempty" json:"feedback,omitempty"`
}

// NewRecord stamps a snapshot with a fresh ID and the current time.
func NewRecord(sessionID string, turns []domain.ChatTurn, feedback map[string]string) Record {
	return Record{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		Conversation: turns,
		Timestamp:    time.Now().UTC(),
		Feedback:     feedback,
	}
}

// Store saves conversation snapshots.
type Store interface {
	Save(ctx context.Context, rec Record) error
}

// IsAccessDenied reports whether a save failed on permissions, the one
// failure mode worth calling out separately in logs since it means the
// deployment is missing a table grant rather than having a transient
// problem.
func IsAccessDenied(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "AccessDeniedException"
}
