package claims

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/loadedteafinder/backend/internal/database"
)

// ValidationError reports malformed or missing input, such as a missing
// required document or an unknown enum value.
type ValidationError struct {
	Message          string
	MissingDocuments []database.DocumentKind
}

func (e *ValidationError) Error() string {
	if len(e.MissingDocuments) > 0 {
		kinds := make([]string, len(e.MissingDocuments))
		for i, k := range e.MissingDocuments {
			kinds[i] = string(k)
		}
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(kinds, ", "))
	}
	return e.Message
}

// DuplicateClaimError reports that the business or the claimant already has
// an active claim, or that the business is already claimed.
type DuplicateClaimError struct {
	BusinessID uuid.UUID
	Reason     string
}

func (e *DuplicateClaimError) Error() string {
	return e.Reason
}

// InvalidTransitionError reports an attempted transition from a terminal or
// incompatible claim status.
type InvalidTransitionError struct {
	ClaimID uuid.UUID
	From    database.ClaimStatus
	To      database.ClaimStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("claim %s: invalid transition from %s to %s", e.ClaimID, e.From, e.To)
}

// NotFoundError reports that a referenced claim or business does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StepNotFoundError reports that a claim has no verification step for the
// requested method.
type StepNotFoundError struct {
	ClaimID uuid.UUID
	Method  database.StepMethod
}

func (e *StepNotFoundError) Error() string {
	return fmt.Sprintf("claim %s has no %s verification step", e.ClaimID, e.Method)
}

// NotificationError reports a failed outbound notification. It never rolls
// back the transition that produced it.
type NotificationError struct {
	Event NotificationEvent
	Err   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to send %s notification: %v", e.Event, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
