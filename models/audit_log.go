package models

import (
	"time"

	"github.com/amirphl/nightpulse/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records trust-relevant actions: submissions, moderation, reports
// and automatic hides
type AuditLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ActorUID     *string        `gorm:"type:varchar(128);index:idx_audit_actor_uid" json:"actor_uid,omitempty"`
	Action       string         `gorm:"type:varchar(64);not null;index:idx_audit_action" json:"action"`
	TargetKind   *string        `gorm:"type:varchar(16)" json:"target_kind,omitempty"`
	TargetID     *string        `gorm:"type:varchar(128);index:idx_audit_target_id" json:"target_id,omitempty"`
	Description  *string        `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string        `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	RequestID    *string        `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	Success      *bool          `gorm:"default:true" json:"success"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

const (
	AuditActionVoteSubmitted       = "vote_submitted"
	AuditActionHousepartySubmitted = "houseparty_submitted"
	AuditActionHousepartyRejected  = "houseparty_submission_rejected"
	AuditActionHousepartyModerated = "houseparty_moderated"
	AuditActionReportCreated       = "report_created"
	AuditActionTargetAutoHidden    = "target_auto_hidden"
	AuditActionSummaryGenerated    = "summary_generated"
	AuditActionSummaryBackfilled   = "summary_backfilled"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	ActorUID      *string
	Action        *string
	TargetID      *string
	Success       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
