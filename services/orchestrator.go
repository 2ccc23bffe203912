package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"recruitreach/llm"
	"recruitreach/models"
	"recruitreach/repository"
)

const (
	ReplyChat            = "chat"
	ReplySequenceCreated = "sequence_created"
	ReplySequenceUpdated = "sequence_updated"

	defaultSessionTitle = "New Chat Session"
	chatHistoryLimit    = 10
)

// ChatReply is the assistant's answer to one chat turn.
type ChatReply struct {
	Type     string           `json:"type"`
	Message  string           `json:"message"`
	Role     string           `json:"role"`
	Sequence *models.Sequence `json:"sequence"`
}

type editSequenceArgs struct {
	SequenceID string         `json:"sequence_id"`
	Updates    SequenceUpdate `json:"updates"`
}

// Orchestrator turns chat turns into sequence create and edit calls.
type Orchestrator struct {
	chats     repository.ChatRepository
	sequences *SequenceManager
	completer Completer
	log       *logrus.Entry
	now       func() time.Time
}

func NewOrchestrator(chats repository.ChatRepository, sequences *SequenceManager, completer Completer, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		chats:     chats,
		sequences: sequences,
		completer: completer,
		log:       log.WithField("component", "orchestrator"),
		now:       time.Now,
	}
}

func (o *Orchestrator) CreateSession(ctx context.Context, title string) (*models.Session, error) {
	if strings.TrimSpace(title) == "" {
		title = defaultSessionTitle
	}
	now := o.now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		Title:     title,
		IsActive:  true,
		Context:   datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.chats.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Chat records the user's message, asks the model for a reply and carries out
// any sequence tool call it makes. sequenceID, when set, becomes the
// session's current sequence.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, message, sequenceID string) (*ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, validationError("message is required")
	}

	session, err := o.chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, "session "+sessionID)
	}
	if sequenceID == "" && session.CurrentSequenceID != nil {
		sequenceID = *session.CurrentSequenceID
	}

	history, err := o.chats.RecentMessages(ctx, sessionID, chatHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	prompt := []llm.Message{{Role: llm.RoleSystem, Content: chatSystemPrompt}}
	if len(session.Context) > 0 {
		prompt = append(prompt, llm.Message{Role: llm.RoleSystem, Content: "Session context:\n" + formatContext(session.Context)})
	}
	if sequenceID != "" {
		if seq, err := o.sequences.Get(ctx, sequenceID); err == nil {
			prompt = append(prompt, llm.Message{Role: llm.RoleSystem, Content: describeSequence(seq)})
		}
	}
	for _, m := range history {
		prompt = append(prompt, llm.Message{Role: m.Role, Content: m.Content})
	}
	prompt = append(prompt, llm.Message{Role: llm.RoleUser, Content: message})

	userAt := o.now().UTC().Truncate(time.Microsecond)
	if err := o.appendMessage(ctx, sessionID, models.RoleUser, message, nil, userAt); err != nil {
		return nil, err
	}

	completion, err := o.completer.Complete(ctx, prompt, []llm.Tool{createSequenceTool, editSequenceTool})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelResponse, err)
	}

	reply, err := o.handleCompletion(ctx, completion, sequenceID)
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{"type": reply.Type}
	if reply.Sequence != nil {
		meta["sequence_id"] = reply.Sequence.ID
		seqID := reply.Sequence.ID
		values := session.Context
		if values == nil {
			values = datatypes.JSONMap{}
		}
		if err := o.chats.UpdateContext(ctx, sessionID, values, &seqID); err != nil {
			o.log.WithError(err).WithField("session_id", sessionID).Warn("Failed to record current sequence")
		}
	}
	assistantAt := o.now().UTC().Truncate(time.Microsecond)
	if !assistantAt.After(userAt) {
		assistantAt = userAt.Add(time.Microsecond)
	}
	if err := o.appendMessage(ctx, sessionID, models.RoleAssistant, reply.Message, meta, assistantAt); err != nil {
		return nil, err
	}

	return reply, nil
}

func (o *Orchestrator) handleCompletion(ctx context.Context, completion *llm.Completion, currentSequenceID string) (*ChatReply, error) {
	if len(completion.ToolCalls) == 0 {
		content := completion.Content
		if content == "" {
			content = "No response content available"
		}
		return &ChatReply{Type: ReplyChat, Message: content, Role: models.RoleAssistant}, nil
	}

	call := completion.ToolCalls[0]
	switch call.Name {
	case toolCreateSequence:
		seq, err := o.createFromArgs(ctx, call.Arguments)
		if err != nil {
			return nil, err
		}
		return &ChatReply{
			Type:     ReplySequenceCreated,
			Message:  fmt.Sprintf("I've created a new sequence titled '%s' with %d steps.", seq.Title, len(seq.Steps)),
			Role:     models.RoleAssistant,
			Sequence: seq,
		}, nil
	case toolEditSequence:
		seq, err := o.editFromArgs(ctx, call.Arguments, currentSequenceID, false)
		if err != nil {
			return nil, err
		}
		return &ChatReply{
			Type:     ReplySequenceUpdated,
			Message:  fmt.Sprintf("I've updated the sequence titled '%s' with %d steps.", seq.Title, len(seq.Steps)),
			Role:     models.RoleAssistant,
			Sequence: seq,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown tool %q", ErrModelResponse, call.Name)
	}
}

// Generate asks the model for a complete sequence described by prompt.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) (*models.Sequence, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, validationError("prompt is required")
	}

	completion, err := o.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: generateSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, []llm.Tool{createSequenceTool})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelResponse, err)
	}

	call, ok := findToolCall(completion, toolCreateSequence)
	if !ok {
		return nil, fmt.Errorf("%w: model did not produce a sequence", ErrModelResponse)
	}
	return o.createFromArgs(ctx, call.Arguments)
}

// Edit asks the model to revise an existing sequence according to prompt.
func (o *Orchestrator) Edit(ctx context.Context, sequenceID, prompt string) (*models.Sequence, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, validationError("prompt is required")
	}
	seq, err := o.sequences.Get(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	completion, err := o.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: editSystemPrompt},
		{Role: llm.RoleSystem, Content: describeSequence(seq)},
		{Role: llm.RoleUser, Content: prompt},
	}, []llm.Tool{editSequenceTool})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelResponse, err)
	}

	call, ok := findToolCall(completion, toolEditSequence)
	if !ok {
		return nil, fmt.Errorf("%w: model did not produce an edit", ErrModelResponse)
	}
	return o.editFromArgs(ctx, call.Arguments, sequenceID, true)
}

// Messages returns a page of the session's messages, newest first.
func (o *Orchestrator) Messages(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error) {
	if _, err := o.chats.GetSession(ctx, sessionID); err != nil {
		return nil, storeError(err, "session "+sessionID)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return o.chats.ListMessages(ctx, sessionID, limit, offset)
}

func (o *Orchestrator) Context(ctx context.Context, sessionID string) (map[string]interface{}, error) {
	session, err := o.chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, "session "+sessionID)
	}
	if session.Context == nil {
		return map[string]interface{}{}, nil
	}
	return session.Context, nil
}

// UpdateContext merges values into the stored session context.
func (o *Orchestrator) UpdateContext(ctx context.Context, sessionID string, values map[string]interface{}) (map[string]interface{}, error) {
	session, err := o.chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, "session "+sessionID)
	}

	merged := datatypes.JSONMap{}
	for k, v := range session.Context {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	if err := o.chats.UpdateContext(ctx, sessionID, merged, nil); err != nil {
		return nil, storeError(err, "session "+sessionID)
	}
	return merged, nil
}

// FormatMessages normalises loosely typed messages into model messages.
func FormatMessages(raw []map[string]interface{}) []llm.Message {
	out := make([]llm.Message, 0, len(raw))
	for _, m := range raw {
		role, _ := m["role"].(string)
		if role == "" {
			role = llm.RoleUser
		}
		content, _ := m["content"].(string)
		out = append(out, llm.Message{Role: role, Content: content})
	}
	return out
}

func (o *Orchestrator) createFromArgs(ctx context.Context, raw json.RawMessage) (*models.Sequence, error) {
	var input CreateSequenceInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("%w: create_sequence arguments: %v", ErrModelResponse, err)
	}
	return o.sequences.Create(ctx, input)
}

// editFromArgs applies an edit_sequence call. The model's sequence_id is
// used unless pinned is set or it named none.
func (o *Orchestrator) editFromArgs(ctx context.Context, raw json.RawMessage, defaultID string, pinned bool) (*models.Sequence, error) {
	var args editSequenceArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: edit_sequence arguments: %v", ErrModelResponse, err)
	}
	id := args.SequenceID
	if pinned || id == "" {
		id = defaultID
	}
	if id == "" {
		return nil, validationError("no sequence selected for editing")
	}
	// activation is never driven by the model
	args.Updates.IsActive = nil
	args.Updates.Status = nil
	return o.sequences.Update(ctx, id, args.Updates)
}

func (o *Orchestrator) appendMessage(ctx context.Context, sessionID, role, content string, meta map[string]interface{}, at time.Time) error {
	msg := &models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  datatypes.JSONMap(meta),
		CreatedAt: at,
	}
	if msg.Metadata == nil {
		msg.Metadata = datatypes.JSONMap{}
	}
	if err := o.chats.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("store %s message: %w", role, err)
	}
	return nil
}

func findToolCall(c *llm.Completion, name string) (llm.ToolCall, bool) {
	for _, call := range c.ToolCalls {
		if call.Name == name {
			return call, true
		}
	}
	return llm.ToolCall{}, false
}

func formatContext(values map[string]interface{}) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, values[k]))
	}
	return strings.Join(lines, "\n")
}

func describeSequence(seq *models.Sequence) string {
	steps, _ := json.Marshal(seq.Steps)
	return fmt.Sprintf("Current sequence (id %s): %q, %s\nSteps: %s", seq.ID, seq.Title, seq.Description, steps)
}
