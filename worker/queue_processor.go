package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"recruitreach/models"
	"recruitreach/repository"
	"recruitreach/services"
	"recruitreach/utils"
)

const DefaultQueueInterval = 5 * time.Minute

// PassResult summarises one processing pass.
type PassResult struct {
	Due    int       `json:"due"`
	Sent   int       `json:"sent"`
	Failed int       `json:"failed"`
	RanAt  time.Time `json:"ran_at"`
}

// ProcessorStatus is a point-in-time view of the processor.
type ProcessorStatus struct {
	Running  bool        `json:"running"`
	Interval string      `json:"interval"`
	LastPass *PassResult `json:"last_pass,omitempty"`
}

// QueueProcessor periodically delivers due emails from the queue.
type QueueProcessor struct {
	emails   repository.EmailQueueRepository
	notifier services.Notifier
	interval time.Duration
	log      *logrus.Entry
	now      func() time.Time

	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	lastPass *PassResult

	// serialises passes from the loop and RunOnce
	passMu sync.Mutex
}

func NewQueueProcessor(emails repository.EmailQueueRepository, notifier services.Notifier, interval time.Duration, log *logrus.Entry) *QueueProcessor {
	if interval <= 0 {
		interval = DefaultQueueInterval
	}
	return &QueueProcessor{
		emails:   emails,
		notifier: notifier,
		interval: interval,
		log:      log.WithField("component", "queue_processor"),
		now:      time.Now,
	}
}

// Start launches the polling loop. Calling it while running does nothing.
func (p *QueueProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(p.stop, p.done)

	p.log.WithField("interval", p.interval.String()).Info("Queue processor started")
}

// Stop signals the loop and blocks until it has exited. An in-flight
// delivery is allowed to finish; remaining due emails wait for the next run.
func (p *QueueProcessor) Stop() {
	p.mu.Lock()
	if p.stop == nil {
		p.mu.Unlock()
		return
	}
	close(p.stop)
	done := p.done
	p.stop = nil
	p.done = nil
	p.mu.Unlock()

	<-done
	p.log.Info("Queue processor stopped")
}

func (p *QueueProcessor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *QueueProcessor) Status() ProcessorStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := ProcessorStatus{
		Running:  p.stop != nil,
		Interval: p.interval.String(),
	}
	if p.lastPass != nil {
		last := *p.lastPass
		status.LastPass = &last
	}
	return status
}

func (p *QueueProcessor) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
				utils.LogError("queue_pass", err, nil)
			}
			timer.Reset(p.interval)
		}
	}
}

// RunOnce delivers every email due now and marks each SENT or FAILED.
// Cancelling ctx stops the pass before the next email.
func (p *QueueProcessor) RunOnce(ctx context.Context) (PassResult, error) {
	p.passMu.Lock()
	defer p.passMu.Unlock()

	result := PassResult{RanAt: p.now().UTC()}
	due, err := p.emails.Due(ctx, result.RanAt)
	if err != nil {
		return result, fmt.Errorf("fetch due emails: %w", err)
	}
	result.Due = len(due)

	for _, entry := range due {
		if ctx.Err() != nil {
			break
		}
		if p.deliver(ctx, entry) {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	if result.Due > 0 {
		p.log.WithFields(logrus.Fields{
			"due":    result.Due,
			"sent":   result.Sent,
			"failed": result.Failed,
		}).Info("Processed email queue")
	}

	p.mu.Lock()
	p.lastPass = &result
	p.mu.Unlock()

	return result, nil
}

func (p *QueueProcessor) deliver(ctx context.Context, entry models.EmailQueueEntry) (sent bool) {
	// the in-flight email completes even if the pass is cancelled
	ctx = context.WithoutCancel(ctx)
	logContext := map[string]interface{}{
		"email_id":    entry.ID,
		"sequence_id": entry.SequenceID,
		"to":          entry.ToEmail,
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while sending: %v", r)
			utils.LogError("queue_send_panic", err, logContext)
			p.markFailed(ctx, entry.ID, err.Error())
			sent = false
		}
	}()

	// rows are already rendered; vars are not applied a second time
	if !p.notifier.Send(ctx, entry.ToEmail, entry.Subject, entry.Content, nil) {
		p.markFailed(ctx, entry.ID, services.ErrDelivery.Error())
		return false
	}

	err := p.emails.MarkSent(ctx, entry.ID, p.now())
	if err != nil {
		err = p.emails.MarkSent(ctx, entry.ID, p.now())
	}
	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields(logContext)).
			Error("Email delivered but still PENDING, it will be sent again on the next pass")
		utils.LogError("queue_mark_sent_duplicate_risk", err, logContext)
	}
	return true
}

func (p *QueueProcessor) markFailed(ctx context.Context, id uint, reason string) {
	if err := p.emails.MarkFailed(ctx, id, reason); err != nil {
		utils.LogError("queue_mark_failed", err, map[string]interface{}{"email_id": id})
	}
}
