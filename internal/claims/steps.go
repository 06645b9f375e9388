package claims

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadedteafinder/backend/internal/database"
)

// AddStep appends a verification step to a claim. A method with a step
// still pending or in progress cannot be added again; duplicate concurrent
// checks of the same kind are a policy violation.
func (s *Service) AddStep(ctx context.Context, actor Actor, claimID uuid.UUID, method database.StepMethod, details string) (*database.VerificationStep, error) {
	if !database.ValidStepMethod(method) {
		return nil, &ValidationError{Message: "invalid verification method: " + string(method)}
	}

	var step database.VerificationStep
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var claim database.Claim
		if err := loadClaimWithSteps(tx, claimID, &claim); err != nil {
			return err
		}
		if claim.Status.IsTerminal() {
			return &InvalidTransitionError{ClaimID: claim.ID, From: claim.Status, To: claim.Status}
		}

		maxPosition := 0
		for _, existing := range claim.Steps {
			if existing.Position > maxPosition {
				maxPosition = existing.Position
			}
			if existing.Method == method && !existing.Status.IsTerminal() {
				return &ValidationError{Message: "a " + string(method) + " verification step is already open"}
			}
		}

		step = database.VerificationStep{
			ClaimID:  claim.ID,
			Method:   method,
			Status:   database.StepStatusPending,
			Details:  details,
			Position: maxPosition + 1,
		}
		return tx.Create(&step).Error
	})
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// AdvanceStep updates the status of a claim's verification step, stamping
// CompletedAt when the step completes. Every status change notifies the
// claimant.
func (s *Service) AdvanceStep(ctx context.Context, actor Actor, claimID uuid.UUID, method database.StepMethod, newStatus database.StepStatus, details string) (*Result, error) {
	if !database.ValidStepStatus(newStatus) {
		return nil, &ValidationError{Message: "invalid step status: " + string(newStatus)}
	}

	var claim database.Claim
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadClaimWithSteps(tx, claimID, &claim); err != nil {
			return err
		}
		if claim.Status.IsTerminal() {
			return &InvalidTransitionError{ClaimID: claim.ID, From: claim.Status, To: claim.Status}
		}

		// With re-added steps the latest one for the method is the live one.
		var step *database.VerificationStep
		for i := len(claim.Steps) - 1; i >= 0; i-- {
			if claim.Steps[i].Method == method {
				step = &claim.Steps[i]
				break
			}
		}
		if step == nil {
			return &StepNotFoundError{ClaimID: claim.ID, Method: method}
		}

		step.Status = newStatus
		step.Details = details
		if newStatus == database.StepStatusCompleted {
			now := time.Now()
			step.CompletedAt = &now
		} else {
			// CompletedAt is set only while the step is completed; demoting
			// a completed step clears it.
			step.CompletedAt = nil
		}
		if err := tx.Save(step).Error; err != nil {
			return err
		}

		return s.enqueueNotification(tx, NotificationPayload{
			ClaimID:    claim.ID,
			Event:      EventStepUpdated,
			StepMethod: string(method),
			StepStatus: string(newStatus),
		})
	})
	if err != nil {
		return nil, err
	}
	return &Result{Claim: &claim}, nil
}

// AllRequiredStepsComplete reports whether every required verification
// method has a completed step. Advisory only; an admin may approve a claim
// before verification finishes.
func AllRequiredStepsComplete(claim *database.Claim) bool {
	for _, method := range requiredStepMethods {
		found := false
		for _, step := range claim.Steps {
			if step.Method != method {
				continue
			}
			if step.Status != database.StepStatusCompleted {
				return false
			}
			found = true
		}
		if !found {
			return false
		}
	}
	return true
}
