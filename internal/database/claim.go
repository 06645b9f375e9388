package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClaimStatus represents the status of a business ownership claim
type ClaimStatus string

// Claim status constants
const (
	ClaimStatusPending       ClaimStatus = "pending"
	ClaimStatusInReview      ClaimStatus = "in_review"
	ClaimStatusNeedsMoreInfo ClaimStatus = "needs_more_info"
	ClaimStatusApproved      ClaimStatus = "approved"
	ClaimStatusRejected      ClaimStatus = "rejected"
	ClaimStatusCancelled     ClaimStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted from the status
func (s ClaimStatus) IsTerminal() bool {
	switch s {
	case ClaimStatusApproved, ClaimStatusRejected, ClaimStatusCancelled:
		return true
	}
	return false
}

// ActiveClaimStatuses are the statuses counted when enforcing the
// one-active-claim-per-business rule.
var ActiveClaimStatuses = []ClaimStatus{
	ClaimStatusPending,
	ClaimStatusInReview,
	ClaimStatusNeedsMoreInfo,
}

// ClaimPriority affects admin queue ordering only
type ClaimPriority string

// Claim priority constants
const (
	ClaimPriorityStandard     ClaimPriority = "standard"
	ClaimPriorityHighPriority ClaimPriority = "high_priority"
	ClaimPriorityUrgent       ClaimPriority = "urgent"
)

// DocumentKind identifies one kind of uploaded verification document
type DocumentKind string

// Document kind constants
const (
	DocumentKindBusinessLicense  DocumentKind = "business_license"
	DocumentKindProofOfOwnership DocumentKind = "proof_of_ownership"
	DocumentKindGovernmentID     DocumentKind = "government_id"
	DocumentKindUtilityBill      DocumentKind = "utility_bill"
	DocumentKindExtra            DocumentKind = "extra"
)

// RequiredDocumentKinds must all be present when a claim is submitted
var RequiredDocumentKinds = []DocumentKind{
	DocumentKindBusinessLicense,
	DocumentKindProofOfOwnership,
	DocumentKindGovernmentID,
	DocumentKindUtilityBill,
}

// StepMethod identifies one verification method
type StepMethod string

// Verification step method constants
const (
	StepMethodPhone                 StepMethod = "phone"
	StepMethodEmail                 StepMethod = "email"
	StepMethodMail                  StepMethod = "mail"
	StepMethodDocuments             StepMethod = "documents"
	StepMethodMenu                  StepMethod = "menu"
	StepMethodOwnershipVerification StepMethod = "ownership_verification"
)

// ValidStepMethod reports whether m is a known verification method
func ValidStepMethod(m StepMethod) bool {
	switch m {
	case StepMethodPhone, StepMethodEmail, StepMethodMail,
		StepMethodDocuments, StepMethodMenu, StepMethodOwnershipVerification:
		return true
	}
	return false
}

// StepStatus represents the status of a verification step
type StepStatus string

// Verification step status constants
const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// IsTerminal reports whether the step status is final
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed
}

// ValidStepStatus reports whether s is a known step status
func ValidStepStatus(s StepStatus) bool {
	switch s {
	case StepStatusPending, StepStatusInProgress, StepStatusCompleted, StepStatusFailed:
		return true
	}
	return false
}

// Claim represents a business ownership claim under admin review.
// Claims are never deleted; cancellation is a status transition and the
// record remains as an audit trail.
type Claim struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID uuid.UUID     `gorm:"type:uuid;index;not null" json:"business_id"`
	ClaimantID uuid.UUID     `gorm:"type:uuid;index;not null" json:"claimant_id"`
	Status     ClaimStatus   `gorm:"type:varchar(20);default:pending;index" json:"status"`
	Priority   ClaimPriority `gorm:"type:varchar(20);default:standard" json:"priority"`

	// One optional stored-file reference per document kind. Extras hold
	// anything beyond the four required kinds.
	BusinessLicenseRef  *string  `json:"business_license_ref,omitempty"`
	ProofOfOwnershipRef *string  `json:"proof_of_ownership_ref,omitempty"`
	GovernmentIDRef     *string  `json:"government_id_ref,omitempty"`
	UtilityBillRef      *string  `json:"utility_bill_ref,omitempty"`
	ExtraRefs           []string `gorm:"type:jsonb;serializer:json" json:"extra_refs,omitempty"`

	RejectionReason string     `json:"rejection_reason,omitempty"`
	ReviewNotes     string     `json:"review_notes,omitempty"`
	ReviewerID      *uuid.UUID `gorm:"type:uuid" json:"reviewer_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	// Relationships
	Steps []VerificationStep `gorm:"foreignKey:ClaimID" json:"verification_steps,omitempty"`
}

// BeforeCreate assigns an id when the database does not generate one
func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// DocumentRef returns the stored reference for a required document kind,
// or nil when the document is absent.
func (c *Claim) DocumentRef(kind DocumentKind) *string {
	switch kind {
	case DocumentKindBusinessLicense:
		return c.BusinessLicenseRef
	case DocumentKindProofOfOwnership:
		return c.ProofOfOwnershipRef
	case DocumentKindGovernmentID:
		return c.GovernmentIDRef
	case DocumentKindUtilityBill:
		return c.UtilityBillRef
	}
	return nil
}

// SetDocumentRef records the stored reference for a document kind.
// Extra documents accumulate in ExtraRefs.
func (c *Claim) SetDocumentRef(kind DocumentKind, ref string) {
	switch kind {
	case DocumentKindBusinessLicense:
		c.BusinessLicenseRef = &ref
	case DocumentKindProofOfOwnership:
		c.ProofOfOwnershipRef = &ref
	case DocumentKindGovernmentID:
		c.GovernmentIDRef = &ref
	case DocumentKindUtilityBill:
		c.UtilityBillRef = &ref
	default:
		c.ExtraRefs = append(c.ExtraRefs, ref)
	}
}

// AllDocumentRefs returns every stored reference on the claim
func (c *Claim) AllDocumentRefs() []string {
	var refs []string
	for _, kind := range RequiredDocumentKinds {
		if ref := c.DocumentRef(kind); ref != nil {
			refs = append(refs, *ref)
		}
	}
	refs = append(refs, c.ExtraRefs...)
	return refs
}

// ClearDocumentRefs removes every stored reference from the claim
func (c *Claim) ClearDocumentRefs() {
	c.BusinessLicenseRef = nil
	c.ProofOfOwnershipRef = nil
	c.GovernmentIDRef = nil
	c.UtilityBillRef = nil
	c.ExtraRefs = nil
}

// VerificationStep is one discrete check evaluated before a claim is
// decided. Steps keep their insertion order via Position.
type VerificationStep struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ClaimID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"claim_id"`
	Method      StepMethod `gorm:"type:varchar(30);not null" json:"method"`
	Status      StepStatus `gorm:"type:varchar(20);default:pending" json:"status"`
	Details     string     `json:"details"`
	Position    int        `gorm:"not null" json:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate assigns an id when the database does not generate one
func (s *VerificationStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ClaimHistory records one claim status change for the audit trail
type ClaimHistory struct {
	ID             uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	ClaimID        uuid.UUID   `gorm:"type:uuid;index" json:"claim_id"`
	PreviousStatus ClaimStatus `json:"previous_status"`
	NewStatus      ClaimStatus `json:"new_status"`
	ActorID        uuid.UUID   `gorm:"type:uuid" json:"actor_id"`
	Notes          string      `json:"notes"`
	CreatedAt      time.Time   `json:"created_at"`
}

// BeforeCreate assigns an id when the database does not generate one
func (h *ClaimHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
