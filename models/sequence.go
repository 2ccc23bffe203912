package models

import (
	"time"

	"gorm.io/datatypes"
)

// SequenceStatus is the lifecycle state of an outreach sequence.
type SequenceStatus string

const (
	SequenceStatusDraft     SequenceStatus = "DRAFT"
	SequenceStatusActive    SequenceStatus = "ACTIVE"
	SequenceStatusPublished SequenceStatus = "PUBLISHED"
)

// StepType is the channel a step is delivered over.
type StepType string

const (
	StepTypeEmail    StepType = "email"
	StepTypeLinkedIn StepType = "linkedin"
)

// Sequence represents a recruiting outreach sequence
type Sequence struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	Title       string            `gorm:"not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Steps       []Step            `gorm:"type:jsonb;serializer:json" json:"steps"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	IsActive    bool              `gorm:"default:false;index" json:"is_active"`
	Status      SequenceStatus    `gorm:"size:16;default:'DRAFT';index" json:"status"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// Step is one message template within a sequence. DelayDays is counted from
// the activation instant, not from the previous step.
type Step struct {
	StepNumber int      `json:"step_number"`
	StepTitle  string   `json:"step_title"`
	Content    string   `json:"content"`
	DelayDays  int      `json:"delay_days"`
	Type       StepType `json:"type"`
}

// StepByNumber returns the step with the given number, if any.
func (s *Sequence) StepByNumber(n int) (Step, bool) {
	for _, step := range s.Steps {
		if step.StepNumber == n {
			return step, true
		}
	}
	return Step{}, false
}
