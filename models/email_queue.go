package models

import "time"

// EmailStatus is the delivery state of a queued email.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "PENDING"
	EmailStatusSent    EmailStatus = "SENT"
	EmailStatusFailed  EmailStatus = "FAILED"
)

// EmailQueueEntry is one scheduled, recipient-specific email job.
// Status only ever moves from PENDING to SENT or FAILED.
type EmailQueueEntry struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	SequenceID    string            `gorm:"size:36;not null;index" json:"sequence_id"`
	StepNumber    int               `gorm:"not null" json:"step_number"`
	ToEmail       string            `gorm:"not null" json:"to_email"`
	Subject       string            `json:"subject"`
	Content       string            `gorm:"type:text" json:"content"`
	ScheduledTime time.Time         `gorm:"not null;index:idx_email_queue_due,priority:2" json:"scheduled_time"`
	Status        EmailStatus       `gorm:"size:16;not null;default:'PENDING';index:idx_email_queue_due,priority:1" json:"status"`
	TemplateVars  map[string]string `gorm:"type:jsonb;serializer:json" json:"template_vars"`
	LastError     string            `gorm:"type:text" json:"last_error,omitempty"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// TableName keeps the table name used by the original deployment.
func (EmailQueueEntry) TableName() string {
	return "email_queue"
}
