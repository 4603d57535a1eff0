package taskflow

import (
	"context"
	"fmt"
	"time"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/metrics"
	"tugasin/server/internal/models"
	"tugasin/server/internal/websocket"

	"go.uber.org/zap"
)

// Store is the slice of the persistence gateway the task state machine
// needs. *store.Store satisfies it; tests inject an in-memory fake.
type Store interface {
	CreateTask(ctx context.Context, t *models.Task, assigneeIDs []string) (*models.Message, error)
	TaskByID(ctx context.Context, id string) (*models.Task, error)
	TaskAssignees(ctx context.Context, taskID string) ([]models.TaskAssignee, error)
	TaskActivities(ctx context.Context, taskID string) ([]models.TaskActivity, error)
	ListTasks(ctx context.Context, userID string, status *models.TaskStatus) ([]models.TaskWithDetails, error)
	AcceptAssignment(ctx context.Context, taskID, userID string) error
	RejectAssignment(ctx context.Context, taskID, userID, reason string) error
	MarkTaskInProgress(ctx context.Context, taskID string) (bool, error)
	MarkTaskRejected(ctx context.Context, taskID string) (bool, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status models.TaskStatus) error
	AddActivity(ctx context.Context, taskID, userID, kind, detail string) error
	TaskConversationID(ctx context.Context, taskID string) (string, error)
	AddMember(ctx context.Context, conversationID, userID, role string) error
	RemoveMember(ctx context.Context, conversationID, userID string) error
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
	MemberIDs(ctx context.Context, conversationID string) ([]string, error)
	InsertMessage(ctx context.Context, m *models.Message) error
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// Bus publishes real-time events; *websocket.Hub satisfies it
type Bus interface {
	Publish(topic string, msg websocket.WSMessage)
}

// Service drives the task acceptance state machine: quorum counting,
// guarded status transitions, conversation membership and the activity log.
type Service struct {
	store Store
	bus   Bus
	log   *zap.Logger
}

// NewService creates the taskflow service
func NewService(store Store, bus Bus, log *zap.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// CreateTaskInput carries the task creation request
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    models.TaskPriority
	AssigneeIDs []string
	StartDate   *time.Time
	DueDate     *time.Time
	TargetDate  *time.Time
}

// Create creates a task transactionally: task row, assignees, created
// activity, task group conversation with the creator as admin, and the
// auto-generated system message all commit or roll back together.
func (s *Service) Create(ctx context.Context, creatorID string, in CreateTaskInput) (*models.TaskWithDetails, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("title is required: %w", apperr.ErrValidation)
	}
	if len(in.AssigneeIDs) == 0 {
		return nil, fmt.Errorf("at least one assignee is required: %w", apperr.ErrValidation)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !validPriority(in.Priority) {
		return nil, fmt.Errorf("invalid priority %q: %w", in.Priority, apperr.ErrValidation)
	}

	task := &models.Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		CreatedBy:   creatorID,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		TargetDate:  in.TargetDate,
	}

	sysMsg, err := s.store.CreateTask(ctx, task, in.AssigneeIDs)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(websocket.ConversationTopic(sysMsg.ConversationID), websocket.WSMessage{
		Type:      websocket.EventNewMessage,
		Payload:   sysMsg,
		Timestamp: time.Now(),
	})
	s.announce(in.AssigneeIDs, task.ID, task.Status)

	return s.details(ctx, task.ID, false)
}

// Accept records an assignee's acceptance, joins them to the task group
// conversation, and applies the quorum rule: with threshold
// min(total, 2), the task flips pending -> in_progress only once every
// assignee has accepted; a quorum short of that logs partial acceptance
// without changing status.
func (s *Service) Accept(ctx context.Context, taskID, userID string) (*models.Task, error) {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.store.AcceptAssignment(ctx, taskID, userID); err != nil {
		return nil, err
	}

	// Acceptance drives membership in the task group conversation
	conversationID, err := s.store.TaskConversationID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddMember(ctx, conversationID, userID, models.RoleMember); err != nil {
		return nil, err
	}

	assignees, err := s.store.TaskAssignees(ctx, taskID)
	if err != nil {
		return nil, err
	}
	total, accepted := counts(assignees)
	threshold := min(total, 2)

	switch {
	case task.Status == models.TaskPending && accepted >= threshold && accepted == total:
		// The conditional update makes the transition and its activity
		// happen exactly once even when acceptances race.
		flipped, err := s.store.MarkTaskInProgress(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if flipped {
			if err := s.store.AddActivity(ctx, taskID, userID, models.ActivityStatusChanged,
				"all assignees accepted, task started"); err != nil {
				return nil, err
			}
			metrics.TaskTransitions.WithLabelValues(string(models.TaskInProgress)).Inc()
			s.announceAll(ctx, taskID, models.TaskInProgress, assignees, task.CreatedBy)
		} else if err := s.store.AddActivity(ctx, taskID, userID, models.ActivityAccepted, "task accepted"); err != nil {
			return nil, err
		}
	case task.Status == models.TaskPending && accepted >= threshold:
		if err := s.store.AddActivity(ctx, taskID, userID, models.ActivityAccepted,
			fmt.Sprintf("%d/%d assignees have accepted", accepted, total)); err != nil {
			return nil, err
		}
	default:
		if err := s.store.AddActivity(ctx, taskID, userID, models.ActivityAccepted, "task accepted"); err != nil {
			return nil, err
		}
	}

	return s.store.TaskByID(ctx, taskID)
}

// Reject records an assignee's rejection. The reason is mandatory and
// stamps the task-level fields (last rejection wins). An assignee who had
// joined the task conversation gets a system message posted and is then
// removed; one who never accepted is left untouched.
func (s *Service) Reject(ctx context.Context, taskID, userID, reason string) (*models.Task, error) {
	if reason == "" {
		return nil, fmt.Errorf("rejection reason is required: %w", apperr.ErrValidation)
	}

	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.store.RejectAssignment(ctx, taskID, userID, reason); err != nil {
		return nil, err
	}

	conversationID, err := s.store.TaskConversationID(ctx, taskID)
	if err == nil {
		wasMember, err := s.store.IsMember(ctx, conversationID, userID)
		if err != nil {
			return nil, err
		}
		if wasMember {
			s.postRejectionMessage(ctx, conversationID, taskID, userID, reason)
			if err := s.store.RemoveMember(ctx, conversationID, userID); err != nil {
				return nil, err
			}
		}
	}

	if err := s.store.AddActivity(ctx, taskID, userID, models.ActivityRejected, reason); err != nil {
		return nil, err
	}

	assignees, err := s.store.TaskAssignees(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if allRejected(assignees) {
		flipped, err := s.store.MarkTaskRejected(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if flipped {
			if err := s.store.AddActivity(ctx, taskID, userID, models.ActivityStatusChanged,
				"all assignees rejected the task"); err != nil {
				return nil, err
			}
			metrics.TaskTransitions.WithLabelValues(string(models.TaskRejected)).Inc()
			s.announceAll(ctx, taskID, models.TaskRejected, assignees, task.CreatedBy)
		}
	}

	return s.store.TaskByID(ctx, taskID)
}

// UpdateStatus applies an explicit status change; only the creator or an
// assignee may apply one. completed is reachable only from in_progress;
// pending is never re-entered.
func (s *Service) UpdateStatus(ctx context.Context, taskID, userID string, status models.TaskStatus) (*models.Task, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("invalid status %q: %w", status, apperr.ErrValidation)
	}

	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	assignees, err := s.store.TaskAssignees(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !participant(task, assignees, userID) {
		return nil, fmt.Errorf("not involved in this task: %w", apperr.ErrForbidden)
	}

	switch {
	case status == task.Status:
		return nil, fmt.Errorf("task already %s: %w", status, apperr.ErrConflict)
	case status == models.TaskCompleted && task.Status != models.TaskInProgress:
		return nil, fmt.Errorf("only an in-progress task can be completed: %w", apperr.ErrConflict)
	case status == models.TaskPending:
		return nil, fmt.Errorf("task cannot go back to pending: %w", apperr.ErrConflict)
	}

	if err := s.store.UpdateTaskStatus(ctx, taskID, status); err != nil {
		return nil, err
	}
	if err := s.store.AddActivity(ctx, taskID, userID, models.ActivityStatusChanged,
		fmt.Sprintf("%s -> %s", task.Status, status)); err != nil {
		return nil, err
	}
	metrics.TaskTransitions.WithLabelValues(string(status)).Inc()

	s.announceAll(ctx, taskID, status, assignees, task.CreatedBy)

	return s.store.TaskByID(ctx, taskID)
}

// Get returns a task with assignees and the activity log; only the
// creator or an assignee may see it.
func (s *Service) Get(ctx context.Context, taskID, userID string) (*models.TaskWithDetails, error) {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	assignees, err := s.store.TaskAssignees(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !participant(task, assignees, userID) {
		return nil, fmt.Errorf("not involved in this task: %w", apperr.ErrForbidden)
	}

	return s.details(ctx, taskID, true)
}

// participant reports whether the user is the task's creator or one of
// its assignees.
func participant(task *models.Task, assignees []models.TaskAssignee, userID string) bool {
	if task.CreatedBy == userID {
		return true
	}
	for _, a := range assignees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// List returns tasks the user created or is assigned to
func (s *Service) List(ctx context.Context, userID string, status *models.TaskStatus) ([]models.TaskWithDetails, error) {
	if status != nil && !validStatus(*status) {
		return nil, fmt.Errorf("invalid status %q: %w", *status, apperr.ErrValidation)
	}
	return s.store.ListTasks(ctx, userID, status)
}

func (s *Service) details(ctx context.Context, taskID string, withActivities bool) (*models.TaskWithDetails, error) {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	assignees, err := s.store.TaskAssignees(ctx, taskID)
	if err != nil {
		return nil, err
	}

	d := &models.TaskWithDetails{Task: *task, Assignees: assignees}

	if conversationID, err := s.store.TaskConversationID(ctx, taskID); err == nil {
		d.ConversationID = &conversationID
	}
	if withActivities {
		activities, err := s.store.TaskActivities(ctx, taskID)
		if err != nil {
			return nil, err
		}
		d.Activities = activities
	}
	return d, nil
}

// postRejectionMessage posts and fans out the system message announcing a
// rejection. Best effort: a failed announcement never undoes the rejection.
func (s *Service) postRejectionMessage(ctx context.Context, conversationID, taskID, userID, reason string) {
	name := userID
	if user, err := s.store.UserByID(ctx, userID); err == nil {
		name = user.Name
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        fmt.Sprintf("%s rejected the task: %s", name, reason),
		Type:           models.TypeSystem,
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		s.log.Warn("post rejection message", zap.Error(err), zap.String("taskId", taskID))
		return
	}

	event := websocket.WSMessage{
		Type:      websocket.EventNewMessage,
		Payload:   msg,
		Timestamp: time.Now(),
	}
	s.bus.Publish(websocket.ConversationTopic(conversationID), event)
	if members, err := s.store.MemberIDs(ctx, conversationID); err == nil {
		for _, uid := range members {
			s.bus.Publish(websocket.UserTopic(uid), event)
		}
	}
}

// announceAll pushes a task_updated event to the creator and every assignee
func (s *Service) announceAll(ctx context.Context, taskID string, status models.TaskStatus, assignees []models.TaskAssignee, creatorID string) {
	ids := []string{creatorID}
	for _, a := range assignees {
		ids = append(ids, a.UserID)
	}
	s.announce(ids, taskID, status)
}

func (s *Service) announce(userIDs []string, taskID string, status models.TaskStatus) {
	event := websocket.WSMessage{
		Type:      websocket.EventTaskUpdated,
		Payload:   websocket.TaskUpdatePayload{TaskID: taskID, Status: string(status)},
		Timestamp: time.Now(),
	}
	for _, uid := range userIDs {
		s.bus.Publish(websocket.UserTopic(uid), event)
	}
}

func counts(assignees []models.TaskAssignee) (total, accepted int) {
	total = len(assignees)
	for _, a := range assignees {
		if a.AcceptedAt != nil {
			accepted++
		}
	}
	return total, accepted
}

func allRejected(assignees []models.TaskAssignee) bool {
	if len(assignees) == 0 {
		return false
	}
	for _, a := range assignees {
		if a.RejectedAt == nil {
			return false
		}
	}
	return true
}

func validStatus(s models.TaskStatus) bool {
	switch s {
	case models.TaskPending, models.TaskInProgress, models.TaskCompleted, models.TaskRejected:
		return true
	}
	return false
}

func validPriority(p models.TaskPriority) bool {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
		return true
	}
	return false
}
