package claims

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadedteafinder/backend/internal/database"
)

func submitTestClaim(t *testing.T, service *Service) (Actor, Actor, *database.Claim) {
	user := createUser(t, service.db, "owner@example.com")
	admin := createUser(t, service.db, "admin@example.com")
	business := createBusiness(t, service.db, "green-leaf-nutrition")

	result, err := service.Submit(context.Background(), Actor{UserID: user.ID}, fullSubmitInput(business.ID))
	require.NoError(t, err)

	return Actor{UserID: user.ID}, Actor{UserID: admin.ID, IsAdmin: true}, result.Claim
}

func TestAddStep(t *testing.T) {
	service, db, _ := newTestService(t)
	_, admin, claim := submitTestClaim(t, service)

	step, err := service.AddStep(context.Background(), admin, claim.ID, database.StepMethodPhone, "call the listed number")
	require.NoError(t, err)
	assert.Equal(t, database.StepMethodPhone, step.Method)
	assert.Equal(t, database.StepStatusPending, step.Status)
	// Appended after the two seeded steps
	assert.Equal(t, 3, step.Position)

	var count int64
	db.Model(&database.VerificationStep{}).Where("claim_id = ?", claim.ID).Count(&count)
	assert.EqualValues(t, 3, count)
}

func TestAddStepInvalidMethod(t *testing.T) {
	service, _, _ := newTestService(t)
	_, admin, claim := submitTestClaim(t, service)

	_, err := service.AddStep(context.Background(), admin, claim.ID, "carrier_pigeon", "")

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAddStepDuplicateOpenMethod(t *testing.T) {
	service, _, _ := newTestService(t)
	_, admin, claim := submitTestClaim(t, service)

	// documents is seeded and still pending
	_, err := service.AddStep(context.Background(), admin, claim.ID, database.StepMethodDocuments, "")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	// Once the open step fails, the method may be re-added
	_, err = service.AdvanceStep(context.Background(), admin, claim.ID, database.StepMethodDocuments, database.StepStatusFailed, "blurry scan")
	require.NoError(t, err)

	step, err := service.AddStep(context.Background(), admin, claim.ID, database.StepMethodDocuments, "second attempt")
	require.NoError(t, err)
	assert.Equal(t, 3, step.Position)
}

func TestAddStepTerminalClaim(t *testing.T) {
	service, _, _ := newTestService(t)
	user, admin, claim := submitTestClaim(t, service)

	_, err := service.Cancel(context.Background(), user, claim.ID)
	require.NoError(t, err)

	_, err = service.AddStep(context.Background(), admin, claim.ID, database.StepMethodPhone, "")

	var transitionErr *InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestAdvanceStep(t *testing.T) {
	service, db, _ := newTestService(t)
	_, admin, claim := submitTestClaim(t, service)

	_, err := service.AdvanceStep(context.Background(), admin, claim.ID, database.StepMethodDocuments, database.StepStatusInProgress, "reviewing uploads")
	require.NoError(t, err)

	var step database.VerificationStep
	require.NoError(t, db.Where("claim_id = ? AND method = ?", claim.ID, database.StepMethodDocuments).First(&step).Error)
	assert.Equal(t, database.StepStatusInProgress, step.Status)
	assert.Equal(t, "reviewing uploads", step.Details)
	assert.Nil(t, step.CompletedAt)

	_, err = service.AdvanceStep(context.Background(), admin, claim.ID, database.StepMethodDocuments, database.StepStatusCompleted, "all documents legible")
	require.NoError(t, err)

	require.NoError(t, db.Where("claim_id = ? AND method = ?", claim.ID, database.StepMethodDocuments).First(&step).Error)
	assert.Equal(t, database.StepStatusCompleted, step.Status)
	assert.NotNil(t, step.CompletedAt)

	// Every step change notifies the claimant
	assert.Contains(t, notificationEvents(t, db), EventStepUpdated)
}

func TestAdvanceStepTerminalClaim(t *testing.T) {
	service, db, _ := newTestService(t)
	user, admin, claim := submitTestClaim(t, service)

	_, err := service.Cancel(context.Background(), user, claim.ID)
	require.NoError(t, err)

	_, err = service.AdvanceStep(context.Background(), admin, claim.ID, database.StepMethodDocuments, database.StepStatusCompleted, "")

	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	// The step is untouched and the claimant was not emailed about it
	var step database.VerificationStep
	require.NoError(t, db.Where("claim_id = ? AND method = ?", claim.ID, database.StepMethodDocuments).First(&step).Error)
	assert.Equal(t, database.StepStatusPending, step.Status)
	assert.NotContains(t, notificationEvents(t, db), EventStepUpdated)
}

func TestAdvanceStepDemotionClearsCompletedAt(t *testing.T) {
	service, db, _ := newTestService(t)
	_, admin, claim := submitTestClaim(t, service)

	_, err := service.AdvanceStep(context.Background(), admin, claim.ID, database.StepMethodDocuments, database.StepStatusCompleted, "")
	require.NoError(t, err)

	_, err = service.AdvanceStep(context.Background(), admin, claim.ID, database.StepMethodDocuments, database.StepStatusFailed, "license expired on a second look")
	require.NoError(t, err)

	var step database.VerificationStep
	require.NoError(t, db.Where("claim_id = ? AND method = ?", claim.ID, database.StepMethodDocuments).First(&step).Error)
	assert.Equal(t, database.StepStatusFailed, step.Status)
	assert.Nil(t, step.CompletedAt)
}

func TestAdvanceStepUnknownMethod(t *testing.T) {
	service, _, _ := newTestService(t)
	_, admin, claim := submitTestClaim(t, service)

	_, err := service.AdvanceStep(context.Background(), admin, claim.ID, database.StepMethodPhone, database.StepStatusCompleted, "")

	var stepErr *StepNotFoundError
	assert.ErrorAs(t, err, &stepErr)
}

func TestAdvanceStepInvalidStatus(t *testing.T) {
	service, _, _ := newTestService(t)
	_, admin, claim := submitTestClaim(t, service)

	_, err := service.AdvanceStep(context.Background(), admin, claim.ID, database.StepMethodDocuments, "done-ish", "")

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAllRequiredStepsComplete(t *testing.T) {
	completed := func(method database.StepMethod) database.VerificationStep {
		return database.VerificationStep{Method: method, Status: database.StepStatusCompleted}
	}

	tests := []struct {
		name  string
		steps []database.VerificationStep
		want  bool
	}{
		{
			name: "both required methods completed",
			steps: []database.VerificationStep{
				completed(database.StepMethodDocuments),
				completed(database.StepMethodOwnershipVerification),
			},
			want: true,
		},
		{
			name: "extra methods do not count",
			steps: []database.VerificationStep{
				completed(database.StepMethodPhone),
				completed(database.StepMethodDocuments),
			},
			want: false,
		},
		{
			name: "pending required step blocks",
			steps: []database.VerificationStep{
				completed(database.StepMethodDocuments),
				{Method: database.StepMethodOwnershipVerification, Status: database.StepStatusPending},
			},
			want: false,
		},
		{
			name: "failed retry of a required method blocks",
			steps: []database.VerificationStep{
				completed(database.StepMethodDocuments),
				{Method: database.StepMethodDocuments, Status: database.StepStatusFailed},
				completed(database.StepMethodOwnershipVerification),
			},
			want: false,
		},
		{
			name:  "no steps",
			steps: nil,
			want:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claim := &database.Claim{Steps: tc.steps}
			assert.Equal(t, tc.want, AllRequiredStepsComplete(claim))
		})
	}
}
