package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"recruitreach/models"
	"recruitreach/repository"
	"recruitreach/utils"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// StepInput is a step as submitted by a client. Pointer fields must be present.
type StepInput struct {
	StepNumber *int            `json:"step_number" validate:"required,gte=1"`
	StepTitle  string          `json:"step_title" validate:"required"`
	Content    string          `json:"content" validate:"required"`
	DelayDays  *int            `json:"delay_days" validate:"required,gte=0"`
	Type       models.StepType `json:"type" validate:"required,oneof=email linkedin"`
}

type CreateSequenceInput struct {
	Title       string                 `json:"title" validate:"required"`
	Description string                 `json:"description" validate:"required"`
	Steps       []StepInput            `json:"steps" validate:"required,min=1,dive"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// SequenceUpdate is a partial update. Nil fields are left unchanged and the
// id can never be changed.
type SequenceUpdate struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Steps       []StepInput            `json:"steps"`
	Metadata    map[string]interface{} `json:"metadata"`
	IsActive    *bool                  `json:"is_active"`
	Status      *models.SequenceStatus `json:"status"`
}

type ListOptions struct {
	Limit      int
	Offset     int
	ActiveOnly bool
	Status     models.SequenceStatus
}

type SequenceManagerOption func(*SequenceManager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SequenceManagerOption {
	return func(m *SequenceManager) {
		m.now = now
	}
}

// SequenceManager owns the sequence lifecycle and the activation fan-out.
type SequenceManager struct {
	sequences repository.SequenceRepository
	emails    repository.EmailQueueRepository
	queue     *QueueService
	notifier  Notifier
	roster    RecipientSource
	log       *logrus.Entry
	now       func() time.Time
	wg        sync.WaitGroup

	// background fan-outs by sequence id
	actMu       sync.Mutex
	activations map[string]*activation
}

type activation struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSequenceManager(
	sequences repository.SequenceRepository,
	emails repository.EmailQueueRepository,
	queue *QueueService,
	notifier Notifier,
	roster RecipientSource,
	log *logrus.Entry,
	opts ...SequenceManagerOption,
) *SequenceManager {
	m := &SequenceManager{
		sequences:   sequences,
		emails:      emails,
		queue:       queue,
		notifier:    notifier,
		roster:      roster,
		log:         log.WithField("component", "sequence_manager"),
		now:         time.Now,
		activations: make(map[string]*activation),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SequenceManager) Create(ctx context.Context, input CreateSequenceInput) (*models.Sequence, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, validationError("%s", err.Error())
	}
	steps, err := buildSteps(input.Steps)
	if err != nil {
		return nil, err
	}

	now := m.clock()
	seq := &models.Sequence{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Steps:       steps,
		Metadata:    metadataOrEmpty(input.Metadata),
		IsActive:    false,
		Status:      models.SequenceStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.sequences.Create(ctx, seq); err != nil {
		return nil, fmt.Errorf("create sequence: %w", err)
	}

	utils.LogEvent("sequence_created", map[string]interface{}{
		"sequence_id": seq.ID,
		"steps":       len(seq.Steps),
	})
	return seq, nil
}

func (m *SequenceManager) Get(ctx context.Context, id string) (*models.Sequence, error) {
	seq, err := m.sequences.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "sequence "+id)
	}
	return seq, nil
}

// List returns sequences newest-created first.
func (m *SequenceManager) List(ctx context.Context, opts ListOptions) ([]models.Sequence, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Status != "" && !validStatus(opts.Status) {
		return nil, validationError("unknown status %q", opts.Status)
	}
	return m.sequences.List(ctx, repository.SequenceFilter{
		Limit:      opts.Limit,
		Offset:     opts.Offset,
		ActiveOnly: opts.ActiveOnly,
		Status:     opts.Status,
	})
}

// Update applies a partial update. Turning is_active on for an inactive
// sequence marks it ACTIVE and starts the fan-out in the background; the
// call returns once the row is stored.
func (m *SequenceManager) Update(ctx context.Context, id string, upd SequenceUpdate) (*models.Sequence, error) {
	seq, err := m.sequences.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "sequence "+id)
	}
	wasActive := seq.IsActive

	if upd.Title != nil {
		if *upd.Title == "" {
			return nil, validationError("title must not be empty")
		}
		seq.Title = *upd.Title
	}
	if upd.Description != nil {
		seq.Description = *upd.Description
	}
	if upd.Steps != nil {
		steps, err := buildSteps(upd.Steps)
		if err != nil {
			return nil, err
		}
		seq.Steps = steps
	}
	if upd.Metadata != nil {
		seq.Metadata = datatypes.JSONMap(upd.Metadata)
	}
	if upd.Status != nil {
		if !validStatus(*upd.Status) {
			return nil, validationError("unknown status %q", *upd.Status)
		}
		seq.Status = *upd.Status
	}
	if upd.IsActive != nil {
		seq.IsActive = *upd.IsActive
	}

	activate := !wasActive && seq.IsActive
	if activate && seq.Status == models.SequenceStatusDraft {
		seq.Status = models.SequenceStatusActive
	}
	seq.UpdatedAt = m.stamp(seq.UpdatedAt)

	if wasActive && !seq.IsActive {
		// nothing more is queued once the update returns
		m.stopActivation(id)
	}

	if activate {
		claimed, err := m.sequences.ClaimActivation(ctx, seq)
		if err != nil {
			return nil, storeError(err, "sequence "+id)
		}
		if claimed {
			m.activateAsync(ctx, *seq)
			return seq, nil
		}
		// a concurrent update activated it first; store the rest without a second fan-out
		m.log.WithField("sequence_id", id).Info("Sequence already activated concurrently")
	}

	if err := m.sequences.Save(ctx, seq); err != nil {
		return nil, storeError(err, "sequence "+id)
	}
	return seq, nil
}

// Delete removes the sequence and every email queued for it.
// A fan-out still running for the sequence is cancelled and awaited first.
func (m *SequenceManager) Delete(ctx context.Context, id string) error {
	m.stopActivation(id)
	if err := m.sequences.Delete(ctx, id); err != nil {
		return storeError(err, "sequence "+id)
	}
	utils.LogEvent("sequence_deleted", map[string]interface{}{"sequence_id": id})
	return nil
}

// Activate queues one email per step and recipient, scheduled delay_days
// after now. Calling it twice queues everything twice.
func (m *SequenceManager) Activate(ctx context.Context, seq *models.Sequence) (int, error) {
	recipients, err := m.roster.Recipients(ctx)
	if err != nil {
		return 0, fmt.Errorf("load recipients: %w", err)
	}

	base := m.clock()
	queued, failed := 0, 0
	for _, step := range sortedSteps(seq.Steps) {
		for _, r := range recipients {
			if err := ctx.Err(); err != nil {
				return queued, err
			}
			ok := m.queue.QueueEmail(ctx, QueueRequest{
				SequenceID: seq.ID,
				StepNumber: step.StepNumber,
				Recipient:  r,
				Subject:    step.StepTitle,
				Content:    step.Content,
				DelayDays:  step.DelayDays,
				Base:       base,
			})
			if ok {
				queued++
			} else {
				failed++
			}
		}
	}

	utils.LogEvent("sequence_activated", map[string]interface{}{
		"sequence_id": seq.ID,
		"queued":      queued,
		"failed":      failed,
	})
	if failed > 0 {
		return queued, fmt.Errorf("%w: %d of %d emails not queued", ErrDelivery, failed, queued+failed)
	}
	return queued, nil
}

// Publish marks the sequence PUBLISHED and active and writes its whole
// fan-out in one transaction. On failure the sequence is stored as an
// inactive DRAFT and the error returned. Publishing an already active
// sequence only updates its status.
func (m *SequenceManager) Publish(ctx context.Context, id string) (*models.Sequence, error) {
	seq, err := m.sequences.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "sequence "+id)
	}

	if seq.IsActive {
		return m.markPublished(ctx, id)
	}

	recipients, err := m.roster.Recipients(ctx)
	if err != nil {
		return nil, m.revertToDraft(ctx, seq, fmt.Errorf("load recipients: %w", err))
	}
	if !m.notifier.TestConnection(ctx) {
		return nil, m.revertToDraft(ctx, seq, fmt.Errorf("%w: notification channel unavailable", ErrDelivery))
	}

	base := m.clock()
	steps := sortedSteps(seq.Steps)
	entries := make([]models.EmailQueueEntry, 0, len(steps)*len(recipients))
	for _, step := range steps {
		for _, r := range recipients {
			entries = append(entries, QueueRequest{
				SequenceID: seq.ID,
				StepNumber: step.StepNumber,
				Recipient:  r,
				Subject:    step.StepTitle,
				Content:    step.Content,
				DelayDays:  step.DelayDays,
				Base:       base,
			}.BuildEntry())
		}
	}

	seq.Status = models.SequenceStatusPublished
	seq.IsActive = true
	seq.UpdatedAt = m.stamp(seq.UpdatedAt)

	err = m.sequences.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := m.sequences.ClaimActivationTx(tx, seq)
		if err != nil {
			return err
		}
		if !claimed {
			return errAlreadyActive
		}
		return m.emails.EnqueueBatch(tx, entries)
	})
	if errors.Is(err, errAlreadyActive) {
		return m.markPublished(ctx, id)
	}
	if err != nil {
		return nil, m.revertToDraft(ctx, seq, fmt.Errorf("publish sequence: %w", err))
	}

	utils.LogEvent("sequence_published", map[string]interface{}{
		"sequence_id": seq.ID,
		"queued":      len(entries),
	})
	return seq, nil
}

// Wait blocks until every background activation has finished.
func (m *SequenceManager) Wait() {
	m.wg.Wait()
}

// markPublished sets PUBLISHED on a sequence that is already active.
func (m *SequenceManager) markPublished(ctx context.Context, id string) (*models.Sequence, error) {
	seq, err := m.sequences.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "sequence "+id)
	}
	seq.Status = models.SequenceStatusPublished
	seq.UpdatedAt = m.stamp(seq.UpdatedAt)
	if err := m.sequences.Save(ctx, seq); err != nil {
		return nil, storeError(err, "sequence "+id)
	}
	return seq, nil
}

// activateAsync runs the fan-out detached from the request. It stays
// cancellable through stopActivation.
func (m *SequenceManager) activateAsync(ctx context.Context, seq models.Sequence) {
	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := &activation{cancel: cancel, done: make(chan struct{})}

	m.actMu.Lock()
	if prev := m.activations[seq.ID]; prev != nil {
		prev.cancel()
	}
	m.activations[seq.ID] = run
	m.actMu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.actMu.Lock()
			if m.activations[seq.ID] == run {
				delete(m.activations, seq.ID)
			}
			m.actMu.Unlock()
			cancel()
			close(run.done)
		}()
		defer func() {
			if r := recover(); r != nil {
				utils.LogError("sequence_activation_panic", fmt.Errorf("panic: %v", r), map[string]interface{}{
					"sequence_id": seq.ID,
				})
			}
		}()

		// deleted or deactivated before the fan-out started
		current, err := m.sequences.Get(actx, seq.ID)
		if err != nil || !current.IsActive {
			m.log.WithField("sequence_id", seq.ID).Info("Sequence no longer active, activation skipped")
			return
		}

		queued, err := m.Activate(actx, &seq)
		if errors.Is(err, context.Canceled) {
			m.log.WithFields(logrus.Fields{
				"sequence_id": seq.ID,
				"queued":      queued,
			}).Info("Sequence activation cancelled")
			return
		}
		if err != nil {
			utils.LogError("sequence_activation", err, map[string]interface{}{
				"sequence_id": seq.ID,
				"queued":      queued,
			})
			return
		}
		m.log.WithFields(logrus.Fields{
			"sequence_id": seq.ID,
			"queued":      queued,
		}).Info("Sequence activated")
	}()
}

// stopActivation cancels the running fan-out for id, if any, and waits for it.
func (m *SequenceManager) stopActivation(id string) {
	m.actMu.Lock()
	run := m.activations[id]
	m.actMu.Unlock()
	if run == nil {
		return
	}
	run.cancel()
	<-run.done
}

func (m *SequenceManager) revertToDraft(ctx context.Context, seq *models.Sequence, cause error) error {
	seq.Status = models.SequenceStatusDraft
	seq.IsActive = false
	seq.UpdatedAt = m.stamp(seq.UpdatedAt)
	if err := m.sequences.Save(context.WithoutCancel(ctx), seq); err != nil {
		utils.LogError("sequence_revert", err, map[string]interface{}{"sequence_id": seq.ID})
	}
	utils.LogError("sequence_publish", cause, map[string]interface{}{"sequence_id": seq.ID})
	return cause
}

func (m *SequenceManager) clock() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// stamp returns a timestamp strictly after prev.
func (m *SequenceManager) stamp(prev time.Time) time.Time {
	now := m.clock()
	if !now.After(prev) {
		now = prev.UTC().Add(time.Microsecond)
	}
	return now
}

func buildSteps(inputs []StepInput) ([]models.Step, error) {
	wrapper := struct {
		Steps []StepInput `json:"steps" validate:"required,min=1,dive"`
	}{Steps: inputs}
	if err := utils.ValidateStruct(wrapper); err != nil {
		return nil, validationError("%s", err.Error())
	}

	seen := make(map[int]bool, len(inputs))
	steps := make([]models.Step, 0, len(inputs))
	for _, in := range inputs {
		n := *in.StepNumber
		if seen[n] {
			return nil, validationError("duplicate step_number %d", n)
		}
		seen[n] = true
		steps = append(steps, models.Step{
			StepNumber: n,
			StepTitle:  in.StepTitle,
			Content:    in.Content,
			DelayDays:  *in.DelayDays,
			Type:       in.Type,
		})
	}
	return sortedSteps(steps), nil
}

func sortedSteps(steps []models.Step) []models.Step {
	out := make([]models.Step, len(steps))
	copy(out, steps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StepNumber < out[j].StepNumber
	})
	return out
}

func validStatus(s models.SequenceStatus) bool {
	switch s {
	case models.SequenceStatusDraft, models.SequenceStatusActive, models.SequenceStatusPublished:
		return true
	}
	return false
}

func metadataOrEmpty(m map[string]interface{}) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(m)
}
