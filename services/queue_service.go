package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"recruitreach/models"
	"recruitreach/repository"
	"recruitreach/utils"
)

const day = 24 * time.Hour

// QueueRequest describes one email to schedule for one recipient.
type QueueRequest struct {
	SequenceID string
	StepNumber int
	Recipient  models.Recipient
	Subject    string
	Content    string
	DelayDays  int
	// Base is the activation instant the delay is counted from.
	Base time.Time
}

// BuildEntry renders the request into a PENDING queue row.
func (r QueueRequest) BuildEntry() models.EmailQueueEntry {
	vars := r.Recipient.TemplateVars()
	return models.EmailQueueEntry{
		SequenceID:    r.SequenceID,
		StepNumber:    r.StepNumber,
		ToEmail:       r.Recipient.Email,
		Subject:       utils.ApplyTemplateVars(r.Subject, vars),
		Content:       utils.ApplyTemplateVars(r.Content, vars),
		ScheduledTime: r.Base.UTC().Add(time.Duration(r.DelayDays) * day),
		Status:        models.EmailStatusPending,
		TemplateVars:  vars,
		CreatedAt:     r.Base.UTC(),
	}
}

// QueueService schedules individual emails after checking the notifier.
type QueueService struct {
	queue    repository.EmailQueueRepository
	notifier Notifier
	log      *logrus.Entry
}

func NewQueueService(queue repository.EmailQueueRepository, notifier Notifier, log *logrus.Entry) *QueueService {
	return &QueueService{
		queue:    queue,
		notifier: notifier,
		log:      log.WithField("component", "queue_service"),
	}
}

// QueueEmail inserts one PENDING row. It returns false without writing when
// the notifier connection test fails or the insert fails.
func (s *QueueService) QueueEmail(ctx context.Context, req QueueRequest) bool {
	if !s.notifier.TestConnection(ctx) {
		s.log.WithFields(logrus.Fields{
			"sequence_id": req.SequenceID,
			"to":          req.Recipient.Email,
		}).Warn("Notifier connection test failed, email not queued")
		return false
	}

	entry := req.BuildEntry()
	if err := s.queue.Enqueue(ctx, &entry); err != nil {
		utils.LogError("queue_insert", err, map[string]interface{}{
			"sequence_id": req.SequenceID,
			"step_number": req.StepNumber,
			"to":          req.Recipient.Email,
		})
		return false
	}
	return true
}

// Entries returns every queued email of a sequence.
func (s *QueueService) Entries(ctx context.Context, sequenceID string) ([]models.EmailQueueEntry, error) {
	return s.queue.ListBySequence(ctx, sequenceID)
}

// Counts returns the number of queued emails per status for a sequence.
func (s *QueueService) Counts(ctx context.Context, sequenceID string) (map[models.EmailStatus]int64, error) {
	return s.queue.CountByStatus(ctx, sequenceID)
}
