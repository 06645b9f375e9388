package claims

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/loadedteafinder/backend/internal/database"
	"github.com/loadedteafinder/backend/internal/queue"
	"github.com/loadedteafinder/backend/internal/services/storage"
)

// Actor is the authenticated caller performing an operation. Identity is
// always passed explicitly; the service never reads it from ambient state.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// DocumentUpload is one verification document supplied at submission
type DocumentUpload struct {
	Kind        database.DocumentKind
	Data        []byte
	ContentType string
}

// SubmitInput carries everything needed to create a claim
type SubmitInput struct {
	BusinessID uuid.UUID
	Priority   database.ClaimPriority
	Documents  []DocumentUpload
}

// Result is the outcome of a claim operation. Warnings carry non-fatal
// side-effect failures (a document purge that could not complete, for
// example) and never indicate a failed transition.
type Result struct {
	Claim    *database.Claim `json:"claim"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Service owns the claim state machine and its side effects
type Service struct {
	db    *gorm.DB
	store storage.ObjectStore
	queue *queue.Queue
	log   *logrus.Logger
}

// NewService creates a claim service
func NewService(db *gorm.DB, store storage.ObjectStore, q *queue.Queue, log *logrus.Logger) *Service {
	return &Service{
		db:    db,
		store: store,
		queue: q,
		log:   log,
	}
}

// transitions enumerates every legal status edge. approved, rejected, and
// cancelled are strictly terminal; there is no loop back to review after a
// rejection.
var transitions = map[database.ClaimStatus][]database.ClaimStatus{
	database.ClaimStatusPending: {
		database.ClaimStatusInReview,
		database.ClaimStatusNeedsMoreInfo,
		database.ClaimStatusApproved,
		database.ClaimStatusRejected,
		database.ClaimStatusCancelled,
	},
	database.ClaimStatusInReview: {
		database.ClaimStatusNeedsMoreInfo,
		database.ClaimStatusApproved,
		database.ClaimStatusRejected,
	},
	database.ClaimStatusNeedsMoreInfo: {
		database.ClaimStatusApproved,
		database.ClaimStatusRejected,
	},
}

func canTransition(from, to database.ClaimStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// requiredStepMethods must all complete before approval is advisable
var requiredStepMethods = []database.StepMethod{
	database.StepMethodDocuments,
	database.StepMethodOwnershipVerification,
}

// Submit creates a new claim for a business. All four required document
// kinds must be present; the business must exist, be unclaimed, and have no
// active claim; the claimant may not hold another active claim anywhere.
func (s *Service) Submit(ctx context.Context, actor Actor, input SubmitInput) (*Result, error) {
	priority := input.Priority
	if priority == "" {
		priority = database.ClaimPriorityStandard
	}
	switch priority {
	case database.ClaimPriorityStandard, database.ClaimPriorityHighPriority, database.ClaimPriorityUrgent:
	default:
		return nil, &ValidationError{Message: "invalid claim priority: " + string(priority)}
	}

	if missing := missingRequiredDocuments(input.Documents); len(missing) > 0 {
		return nil, &ValidationError{
			Message:          "missing required documents",
			MissingDocuments: missing,
		}
	}

	var business database.Business
	if err := s.db.First(&business, "id = ?", input.BusinessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "business", ID: input.BusinessID.String()}
		}
		return nil, err
	}

	if business.IsClaimed {
		return nil, &DuplicateClaimError{
			BusinessID: business.ID,
			Reason:     "business is already claimed",
		}
	}

	claim := database.Claim{
		BusinessID: business.ID,
		ClaimantID: actor.UserID,
		Status:     database.ClaimStatusPending,
		Priority:   priority,
		Steps:      seededSteps(),
	}

	// Store documents before opening the transaction, the way uploads land
	// on disk before the record exists. On a failed commit the stored
	// objects are cleaned up best effort.
	storedRefs := make([]string, 0, len(input.Documents))
	for _, doc := range input.Documents {
		ref, err := s.store.Store(ctx, doc.Data, doc.ContentType)
		if err != nil {
			s.cleanupRefs(ctx, storedRefs)
			return nil, err
		}
		storedRefs = append(storedRefs, ref)
		claim.SetDocumentRef(doc.Kind, ref)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// The counts run in the claim's transaction; the partial unique
		// index on claims(business_id) remains the authoritative guard for
		// races that slip between the count and the insert.
		var activeCount int64
		if err := tx.Model(&database.Claim{}).
			Where("business_id = ? AND status IN ?", business.ID, database.ActiveClaimStatuses).
			Count(&activeCount).Error; err != nil {
			return err
		}
		if activeCount > 0 {
			return &DuplicateClaimError{
				BusinessID: business.ID,
				Reason:     "business already has an active claim",
			}
		}

		if err := tx.Model(&database.Claim{}).
			Where("claimant_id = ? AND status IN ?", actor.UserID, database.ActiveClaimStatuses).
			Count(&activeCount).Error; err != nil {
			return err
		}
		if activeCount > 0 {
			return &DuplicateClaimError{
				BusinessID: business.ID,
				Reason:     "you already have a claim under review",
			}
		}

		if err := tx.Create(&claim).Error; err != nil {
			return err
		}

		history := database.ClaimHistory{
			ClaimID:        claim.ID,
			PreviousStatus: database.ClaimStatusPending,
			NewStatus:      database.ClaimStatusPending,
			ActorID:        actor.UserID,
			Notes:          "claim submitted",
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		// The admin copy is a separate job so a failed admin send never
		// re-delivers the claimant's email on retry.
		if err := s.enqueueNotification(tx, NotificationPayload{
			ClaimID: claim.ID,
			Event:   EventSubmitted,
		}); err != nil {
			return err
		}
		return s.enqueueNotification(tx, NotificationPayload{
			ClaimID: claim.ID,
			Event:   EventSubmittedAdmin,
		})
	})
	if err != nil {
		s.cleanupRefs(ctx, storedRefs)
		if isUniqueViolation(err) {
			// The partial unique index caught a concurrent submission that
			// slipped past the existence check above.
			return nil, &DuplicateClaimError{
				BusinessID: business.ID,
				Reason:     "business already has an active claim",
			}
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"claim_id":    claim.ID,
		"business_id": business.ID,
		"claimant_id": actor.UserID,
	}).Info("claim submitted")

	return &Result{Claim: &claim}, nil
}

// BeginReview moves a pending claim into review. No notification is sent.
func (s *Service) BeginReview(ctx context.Context, actor Actor, claimID uuid.UUID) (*Result, error) {
	var claim database.Claim
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadClaim(tx, claimID, &claim); err != nil {
			return err
		}
		if !canTransition(claim.Status, database.ClaimStatusInReview) {
			return &InvalidTransitionError{ClaimID: claim.ID, From: claim.Status, To: database.ClaimStatusInReview}
		}

		previous := claim.Status
		claim.Status = database.ClaimStatusInReview
		claim.ReviewerID = &actor.UserID
		if err := tx.Save(&claim).Error; err != nil {
			return err
		}

		return tx.Create(&database.ClaimHistory{
			ClaimID:        claim.ID,
			PreviousStatus: previous,
			NewStatus:      claim.Status,
			ActorID:        actor.UserID,
			Notes:          "review started",
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &Result{Claim: &claim}, nil
}

// RequestMoreInfo asks the claimant for additional documentation
func (s *Service) RequestMoreInfo(ctx context.Context, actor Actor, claimID uuid.UUID, notes string) (*Result, error) {
	if notes == "" {
		return nil, &ValidationError{Message: "notes are required when requesting more information"}
	}

	var claim database.Claim
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadClaim(tx, claimID, &claim); err != nil {
			return err
		}
		if !canTransition(claim.Status, database.ClaimStatusNeedsMoreInfo) {
			return &InvalidTransitionError{ClaimID: claim.ID, From: claim.Status, To: database.ClaimStatusNeedsMoreInfo}
		}

		previous := claim.Status
		claim.Status = database.ClaimStatusNeedsMoreInfo
		claim.ReviewerID = &actor.UserID
		claim.ReviewNotes = notes
		if err := tx.Save(&claim).Error; err != nil {
			return err
		}

		if err := tx.Create(&database.ClaimHistory{
			ClaimID:        claim.ID,
			PreviousStatus: previous,
			NewStatus:      claim.Status,
			ActorID:        actor.UserID,
			Notes:          notes,
		}).Error; err != nil {
			return err
		}

		return s.enqueueNotification(tx, NotificationPayload{
			ClaimID: claim.ID,
			Event:   EventNeedsMoreInfo,
			Notes:   notes,
		})
	})
	if err != nil {
		return nil, err
	}
	return &Result{Claim: &claim}, nil
}

// Approve approves a claim and marks the business as claimed by the
// claimant. Incomplete required verification steps do not block approval;
// they surface as an advisory warning.
func (s *Service) Approve(ctx context.Context, actor Actor, claimID uuid.UUID, notes string) (*Result, error) {
	var claim database.Claim
	var warnings []string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadClaimWithSteps(tx, claimID, &claim); err != nil {
			return err
		}
		if !canTransition(claim.Status, database.ClaimStatusApproved) {
			return &InvalidTransitionError{ClaimID: claim.ID, From: claim.Status, To: database.ClaimStatusApproved}
		}

		if !AllRequiredStepsComplete(&claim) {
			warnings = append(warnings, "approved before all required verification steps completed")
		}

		now := time.Now()
		previous := claim.Status
		claim.Status = database.ClaimStatusApproved
		claim.ReviewerID = &actor.UserID
		claim.ReviewNotes = notes
		claim.ReviewedAt = &now
		if err := tx.Save(&claim).Error; err != nil {
			return err
		}

		if err := tx.Model(&database.Business{}).
			Where("id = ?", claim.BusinessID).
			Updates(map[string]interface{}{
				"is_claimed": true,
				"claimed_by": claim.ClaimantID,
			}).Error; err != nil {
			return err
		}

		if err := tx.Create(&database.ClaimHistory{
			ClaimID:        claim.ID,
			PreviousStatus: previous,
			NewStatus:      claim.Status,
			ActorID:        actor.UserID,
			Notes:          notes,
		}).Error; err != nil {
			return err
		}

		return s.enqueueNotification(tx, NotificationPayload{
			ClaimID: claim.ID,
			Event:   EventApproved,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"claim_id":    claim.ID,
		"business_id": claim.BusinessID,
		"reviewer_id": actor.UserID,
	}).Info("claim approved")

	return &Result{Claim: &claim, Warnings: warnings}, nil
}

// Reject rejects a claim with a reason. Uploaded documents are retained for
// audit.
func (s *Service) Reject(ctx context.Context, actor Actor, claimID uuid.UUID, reason string) (*Result, error) {
	if reason == "" {
		return nil, &ValidationError{Message: "a rejection reason is required"}
	}

	var claim database.Claim
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadClaim(tx, claimID, &claim); err != nil {
			return err
		}
		if !canTransition(claim.Status, database.ClaimStatusRejected) {
			return &InvalidTransitionError{ClaimID: claim.ID, From: claim.Status, To: database.ClaimStatusRejected}
		}

		now := time.Now()
		previous := claim.Status
		claim.Status = database.ClaimStatusRejected
		claim.ReviewerID = &actor.UserID
		claim.RejectionReason = reason
		claim.RejectedAt = &now
		claim.ReviewedAt = &now
		if err := tx.Save(&claim).Error; err != nil {
			return err
		}

		if err := tx.Create(&database.ClaimHistory{
			ClaimID:        claim.ID,
			PreviousStatus: previous,
			NewStatus:      claim.Status,
			ActorID:        actor.UserID,
			Notes:          reason,
		}).Error; err != nil {
			return err
		}

		return s.enqueueNotification(tx, NotificationPayload{
			ClaimID: claim.ID,
			Event:   EventRejected,
			Notes:   reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"claim_id":    claim.ID,
		"reviewer_id": actor.UserID,
	}).Info("claim rejected")

	return &Result{Claim: &claim}, nil
}

// Cancel is the claimant withdrawing a pending claim. Uploaded documents
// are purged; purge failures surface as warnings, never as errors.
func (s *Service) Cancel(ctx context.Context, actor Actor, claimID uuid.UUID) (*Result, error) {
	var claim database.Claim
	var purgeRefs []string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadClaim(tx, claimID, &claim); err != nil {
			return err
		}
		if claim.ClaimantID != actor.UserID && !actor.IsAdmin {
			return &NotFoundError{Resource: "claim", ID: claimID.String()}
		}
		if claim.Status != database.ClaimStatusPending {
			return &InvalidTransitionError{ClaimID: claim.ID, From: claim.Status, To: database.ClaimStatusCancelled}
		}

		purgeRefs = claim.AllDocumentRefs()

		now := time.Now()
		previous := claim.Status
		claim.Status = database.ClaimStatusCancelled
		claim.CancelledAt = &now
		claim.ClearDocumentRefs()
		if err := tx.Save(&claim).Error; err != nil {
			return err
		}

		if err := tx.Create(&database.ClaimHistory{
			ClaimID:        claim.ID,
			PreviousStatus: previous,
			NewStatus:      claim.Status,
			ActorID:        actor.UserID,
			Notes:          "cancelled by claimant",
		}).Error; err != nil {
			return err
		}

		return s.enqueueNotification(tx, NotificationPayload{
			ClaimID: claim.ID,
			Event:   EventCancelled,
		})
	})
	if err != nil {
		return nil, err
	}

	// The transition is committed; object deletion is best effort.
	var warnings []string
	for _, ref := range purgeRefs {
		if err := s.store.Delete(ctx, ref); err != nil {
			s.log.WithField("ref", ref).WithError(err).Warn("failed to purge claim document")
			warnings = append(warnings, "failed to remove document "+ref)
		}
	}

	return &Result{Claim: &claim, Warnings: warnings}, nil
}

// Get returns a claim visible to the actor: the claimant or an admin
func (s *Service) Get(ctx context.Context, actor Actor, claimID uuid.UUID) (*database.Claim, error) {
	var claim database.Claim
	if err := loadClaimWithSteps(s.db, claimID, &claim); err != nil {
		return nil, err
	}
	if claim.ClaimantID != actor.UserID && !actor.IsAdmin {
		return nil, &NotFoundError{Resource: "claim", ID: claimID.String()}
	}
	return &claim, nil
}

// ListByClaimant returns the actor's claims, newest first
func (s *Service) ListByClaimant(ctx context.Context, actor Actor) ([]database.Claim, error) {
	var result []database.Claim
	err := s.db.
		Preload("Steps", stepOrder).
		Where("claimant_id = ?", actor.UserID).
		Order("created_at DESC").
		Find(&result).Error
	return result, err
}

// ListQueue returns active claims for the admin review queue, urgent first,
// then oldest first. Priority affects ordering only.
func (s *Service) ListQueue(ctx context.Context, actor Actor) ([]database.Claim, error) {
	var result []database.Claim
	err := s.db.
		Preload("Steps", stepOrder).
		Where("status IN ?", database.ActiveClaimStatuses).
		Order("CASE priority WHEN 'urgent' THEN 0 WHEN 'high_priority' THEN 1 ELSE 2 END").
		Order("created_at ASC").
		Find(&result).Error
	return result, err
}

// seededSteps are the verification steps every new claim starts with
func seededSteps() []database.VerificationStep {
	steps := make([]database.VerificationStep, len(requiredStepMethods))
	for i, method := range requiredStepMethods {
		steps[i] = database.VerificationStep{
			Method:   method,
			Status:   database.StepStatusPending,
			Position: i + 1,
		}
	}
	return steps
}

func missingRequiredDocuments(docs []DocumentUpload) []database.DocumentKind {
	present := make(map[database.DocumentKind]bool, len(docs))
	for _, doc := range docs {
		present[doc.Kind] = true
	}

	var missing []database.DocumentKind
	for _, kind := range database.RequiredDocumentKinds {
		if !present[kind] {
			missing = append(missing, kind)
		}
	}
	return missing
}

func loadClaim(tx *gorm.DB, claimID uuid.UUID, claim *database.Claim) error {
	if err := tx.First(claim, "id = ?", claimID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "claim", ID: claimID.String()}
		}
		return err
	}
	return nil
}

func loadClaimWithSteps(tx *gorm.DB, claimID uuid.UUID, claim *database.Claim) error {
	if err := tx.Preload("Steps", stepOrder).First(claim, "id = ?", claimID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "claim", ID: claimID.String()}
		}
		return err
	}
	return nil
}

func stepOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (s *Service) cleanupRefs(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := s.store.Delete(ctx, ref); err != nil {
			s.log.WithField("ref", ref).WithError(err).Warn("failed to clean up stored document")
		}
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// postgres and sqlite wordings
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
