package claims

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/loadedteafinder/backend/internal/database"
	"github.com/loadedteafinder/backend/internal/queue"
	"github.com/loadedteafinder/backend/internal/services/email"
)

// NotificationEvent identifies a state-machine event that produces an email
type NotificationEvent string

// Notification events
const (
	EventSubmitted      NotificationEvent = "claim_submitted"
	EventSubmittedAdmin NotificationEvent = "claim_submitted_admin"
	EventApproved       NotificationEvent = "claim_approved"
	EventRejected       NotificationEvent = "claim_rejected"
	EventNeedsMoreInfo  NotificationEvent = "claim_needs_more_info"
	EventCancelled      NotificationEvent = "claim_cancelled"
	EventStepUpdated    NotificationEvent = "claim_step_updated"
)

// NotificationPayload is the job payload written to the outbox
type NotificationPayload struct {
	ClaimID    uuid.UUID         `json:"claim_id"`
	Event      NotificationEvent `json:"event"`
	StepMethod string            `json:"step_method,omitempty"`
	StepStatus string            `json:"step_status,omitempty"`
	Notes      string            `json:"notes,omitempty"`
}

// enqueueNotification records the notification in the same transaction as
// the state change. Delivery happens in the queue worker, so a failed send
// can never roll back a committed transition.
func (s *Service) enqueueNotification(tx *gorm.DB, payload NotificationPayload) error {
	_, err := s.queue.EnqueueTx(tx, queue.JobTypeSendClaimNotification, payload)
	return err
}

// Notifier delivers claim notification jobs from the outbox
type Notifier struct {
	db         *gorm.DB
	email      *email.EmailService
	adminEmail string
	log        *logrus.Logger
}

// NewNotifier creates a claim notifier
func NewNotifier(db *gorm.DB, emailService *email.EmailService, adminEmail string, log *logrus.Logger) *Notifier {
	return &Notifier{
		db:         db,
		email:      emailService,
		adminEmail: adminEmail,
		log:        log,
	}
}

// Register attaches the notifier to the queue
func (n *Notifier) Register(q *queue.Queue) {
	q.RegisterHandler(queue.JobTypeSendClaimNotification, n.handle)
}

func (n *Notifier) handle(ctx context.Context, job queue.Job) error {
	var payload NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}

	var claim database.Claim
	if err := n.db.First(&claim, "id = ?", payload.ClaimID).Error; err != nil {
		return fmt.Errorf("failed to load claim %s: %w", payload.ClaimID, err)
	}

	var business database.Business
	if err := n.db.First(&business, "id = ?", claim.BusinessID).Error; err != nil {
		return fmt.Errorf("failed to load business %s: %w", claim.BusinessID, err)
	}

	var claimant database.User
	if err := n.db.First(&claimant, "id = ?", claim.ClaimantID).Error; err != nil {
		return fmt.Errorf("failed to load claimant %s: %w", claim.ClaimantID, err)
	}

	var err error
	switch payload.Event {
	case EventSubmitted:
		err = n.email.SendClaimSubmitted(claimant.Email, claimant.FirstName, business.Name)
	case EventSubmittedAdmin:
		if n.adminEmail == "" {
			return nil
		}
		err = n.email.SendClaimSubmittedAdmin(n.adminEmail, business.Name, claim.ID.String())
	case EventApproved:
		err = n.email.SendClaimApproved(claimant.Email, claimant.FirstName, business.Name)
	case EventRejected:
		reason := payload.Notes
		if reason == "" {
			reason = claim.RejectionReason
		}
		err = n.email.SendClaimRejected(claimant.Email, claimant.FirstName, business.Name, reason)
	case EventNeedsMoreInfo:
		err = n.email.SendMoreInfoRequested(claimant.Email, claimant.FirstName, business.Name, payload.Notes)
	case EventCancelled:
		err = n.email.SendClaimCancelled(claimant.Email, claimant.FirstName, business.Name)
	case EventStepUpdated:
		err = n.email.SendStepUpdated(claimant.Email, claimant.FirstName, business.Name, payload.StepMethod, payload.StepStatus)
	default:
		return fmt.Errorf("unknown notification event: %s", payload.Event)
	}

	if err != nil {
		notifErr := &NotificationError{Event: payload.Event, Err: err}
		n.log.WithFields(logrus.Fields{
			"claim_id": claim.ID,
			"event":    payload.Event,
		}).WithError(err).Warn("claim notification failed")
		return notifErr
	}

	return nil
}
