package taskflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/models"
	"tugasin/server/internal/utils"
	"tugasin/server/internal/websocket"

	"github.com/google/uuid"
)

var errInjected = errors.New("injected failure")

// fakeStore is an in-memory Store for state machine tests
type fakeStore struct {
	mu         sync.Mutex
	tasks      map[string]*models.Task
	assignees  map[string]map[string]*models.TaskAssignee
	activities []models.TaskActivity
	taskConv   map[string]string
	members    map[string]map[string]string // conversationID -> userID -> role
	messages   []models.Message
	users      map[string]*models.User

	failCreateStep string // "assignees", "conversation" or "message"
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:     make(map[string]*models.Task),
		assignees: make(map[string]map[string]*models.TaskAssignee),
		taskConv:  make(map[string]string),
		members:   make(map[string]map[string]string),
		users:     make(map[string]*models.User),
	}
}

func (f *fakeStore) addUser(id, name string) {
	f.users[id] = &models.User{ID: id, Name: name}
}

// CreateTask mirrors the transactional store: nothing is visible unless
// every step succeeds.
func (f *fakeStore) CreateTask(_ context.Context, t *models.Task, assigneeIDs []string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t.ID = uuid.NewString()
	t.Ref = utils.GenerateRef(t.Title)
	t.Status = models.TaskPending
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt

	if f.failCreateStep == "assignees" {
		return nil, errInjected
	}
	staged := make(map[string]*models.TaskAssignee)
	for _, uid := range assigneeIDs {
		staged[uid] = &models.TaskAssignee{TaskID: t.ID, UserID: uid}
	}

	if f.failCreateStep == "conversation" {
		return nil, errInjected
	}
	convID := uuid.NewString()

	if f.failCreateStep == "message" {
		return nil, errInjected
	}

	// Commit
	stored := *t
	f.tasks[t.ID] = &stored
	f.assignees[t.ID] = staged
	f.taskConv[t.ID] = convID
	f.members[convID] = map[string]string{t.CreatedBy: models.RoleAdmin}
	f.activities = append(f.activities, models.TaskActivity{
		ID: uuid.NewString(), TaskID: t.ID, UserID: t.CreatedBy,
		Kind: models.ActivityCreated, Detail: "task created", CreatedAt: time.Now(),
	})
	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: convID,
		SenderID:       t.CreatedBy,
		Content:        fmt.Sprintf("Task %s created: %s", t.Ref, t.Title),
		Type:           models.TypeSystem,
		Status:         models.StatusSent,
		CreatedAt:      time.Now(),
	}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeStore) TaskByID(_ context.Context, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task: %w", apperr.ErrNotFound)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeStore) TaskAssignees(_ context.Context, taskID string) ([]models.TaskAssignee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.TaskAssignee{}
	for _, a := range f.assignees[taskID] {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeStore) TaskActivities(_ context.Context, taskID string) ([]models.TaskActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.TaskActivity{}
	for _, a := range f.activities {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTasks(_ context.Context, userID string, status *models.TaskStatus) ([]models.TaskWithDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.TaskWithDetails{}
	for id, t := range f.tasks {
		_, assigned := f.assignees[id][userID]
		if t.CreatedBy != userID && !assigned {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, models.TaskWithDetails{Task: *t})
	}
	return out, nil
}

func (f *fakeStore) AcceptAssignment(_ context.Context, taskID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignees[taskID][userID]
	if !ok {
		return fmt.Errorf("not an assignee of this task: %w", apperr.ErrForbidden)
	}
	if a.AcceptedAt != nil {
		return fmt.Errorf("already accepted: %w", apperr.ErrConflict)
	}
	now := time.Now()
	a.AcceptedAt = &now
	a.RejectedAt = nil
	return nil
}

func (f *fakeStore) RejectAssignment(_ context.Context, taskID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignees[taskID][userID]
	if !ok {
		return fmt.Errorf("not an assignee of this task: %w", apperr.ErrForbidden)
	}
	now := time.Now()
	a.RejectedAt = &now
	a.AcceptedAt = nil
	t := f.tasks[taskID]
	t.RejectionReason = &reason
	t.RejectedAt = &now
	return nil
}

func (f *fakeStore) MarkTaskInProgress(_ context.Context, taskID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.Status != models.TaskPending {
		return false, nil
	}
	t.Status = models.TaskInProgress
	return true, nil
}

func (f *fakeStore) MarkTaskRejected(_ context.Context, taskID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.Status != models.TaskPending {
		return false, nil
	}
	t.Status = models.TaskRejected
	return true, nil
}

func (f *fakeStore) UpdateTaskStatus(_ context.Context, taskID string, status models.TaskStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return fmt.Errorf("task: %w", apperr.ErrNotFound)
	}
	t.Status = status
	if status == models.TaskCompleted {
		now := time.Now()
		t.CompletedAt = &now
	}
	return nil
}

func (f *fakeStore) AddActivity(_ context.Context, taskID, userID, kind, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, models.TaskActivity{
		ID: uuid.NewString(), TaskID: taskID, UserID: userID,
		Kind: kind, Detail: detail, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeStore) TaskConversationID(_ context.Context, taskID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.taskConv[taskID]
	if !ok {
		return "", fmt.Errorf("task conversation: %w", apperr.ErrNotFound)
	}
	return id, nil
}

func (f *fakeStore) AddMember(_ context.Context, conversationID, userID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[conversationID] == nil {
		f.members[conversationID] = make(map[string]string)
	}
	if _, ok := f.members[conversationID][userID]; !ok {
		f.members[conversationID][userID] = role
	}
	return nil
}

func (f *fakeStore) RemoveMember(_ context.Context, conversationID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[conversationID], userID)
	return nil
}

func (f *fakeStore) IsMember(_ context.Context, conversationID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[conversationID][userID]
	return ok, nil
}

func (f *fakeStore) MemberIDs(_ context.Context, conversationID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for uid := range f.members[conversationID] {
		out = append(out, uid)
	}
	return out, nil
}

func (f *fakeStore) InsertMessage(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uuid.NewString()
	m.Status = models.StatusSent
	m.CreatedAt = time.Now()
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeStore) UserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	return u, nil
}

// fakeBus records published events
type fakeBus struct {
	mu     sync.Mutex
	events []websocket.WSMessage
}

func (b *fakeBus) Publish(_ string, msg websocket.WSMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, msg)
}
