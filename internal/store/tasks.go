package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/models"
	"tugasin/server/internal/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateTask runs the five-step task creation in a single transaction:
// task row, assignee rows, 'created' activity, the task group conversation
// with the creator as admin, and the auto-generated system message. Any
// failure rolls the whole creation back.
func (s *Store) CreateTask(ctx context.Context, t *models.Task, assigneeIDs []string) (*models.Message, error) {
	t.ID = uuid.NewString()
	t.Ref = utils.GenerateRef(t.Title)
	t.Status = models.TaskPending
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	var sysMsg *models.Message
	err := s.withTx(ctx, func(tx *Store) error {
		_, err := tx.db.Exec(ctx, `
			INSERT INTO tasks (id, ref, title, description, status, priority, created_by,
				start_date, due_date, target_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		`, t.ID, t.Ref, t.Title, t.Description, t.Status, t.Priority, t.CreatedBy,
			t.StartDate, t.DueDate, t.TargetDate, now)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		for _, uid := range assigneeIDs {
			_, err := tx.db.Exec(ctx, `
				INSERT INTO task_assignees (task_id, user_id)
				VALUES ($1, $2)
				ON CONFLICT (task_id, user_id) DO NOTHING
			`, t.ID, uid)
			if err != nil {
				return fmt.Errorf("insert assignee: %w", err)
			}
		}

		if err := tx.AddActivity(ctx, t.ID, t.CreatedBy, models.ActivityCreated, "task created"); err != nil {
			return err
		}

		// Dedicated task group conversation, creator only; assignees join
		// on acceptance, not on invite.
		convID := uuid.NewString()
		_, err = tx.db.Exec(ctx, `
			INSERT INTO conversations (id, is_group, is_task_group, task_id, name, created_at, updated_at)
			VALUES ($1, true, true, $2, $3, $4, $4)
		`, convID, t.ID, t.Title, now)
		if err != nil {
			return fmt.Errorf("create task conversation: %w", err)
		}

		if err := tx.AddMember(ctx, convID, t.CreatedBy, models.RoleAdmin); err != nil {
			return err
		}

		sysMsg = &models.Message{
			ConversationID: convID,
			SenderID:       t.CreatedBy,
			Content:        fmt.Sprintf("Task %s created: %s", t.Ref, t.Title),
			Type:           models.TypeSystem,
		}
		return tx.InsertMessage(ctx, sysMsg)
	})
	if err != nil {
		return nil, err
	}

	return sysMsg, nil
}

// TaskByID returns a task by id
func (s *Store) TaskByID(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, ref, title, description, status, priority, created_by,
			start_date, due_date, target_date, rejection_reason, rejected_at, completed_at,
			created_at, updated_at
		FROM tasks WHERE id = $1
	`, id)

	var t models.Task
	err := row.Scan(&t.ID, &t.Ref, &t.Title, &t.Description, &t.Status, &t.Priority, &t.CreatedBy,
		&t.StartDate, &t.DueDate, &t.TargetDate, &t.RejectionReason, &t.RejectedAt, &t.CompletedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return &t, nil
}

// TaskAssignees returns all assignee rows for a task
func (s *Store) TaskAssignees(ctx context.Context, taskID string) ([]models.TaskAssignee, error) {
	rows, err := s.db.Query(ctx, `
		SELECT task_id, user_id, accepted_at, rejected_at
		FROM task_assignees WHERE task_id = $1
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query assignees: %w", err)
	}
	defer rows.Close()

	assignees := []models.TaskAssignee{}
	for rows.Next() {
		var a models.TaskAssignee
		if err := rows.Scan(&a.TaskID, &a.UserID, &a.AcceptedAt, &a.RejectedAt); err != nil {
			return nil, err
		}
		assignees = append(assignees, a)
	}
	return assignees, rows.Err()
}

// AcceptAssignment sets accepted_at and clears rejected_at for the caller.
// The caller must be an assignee and must not have accepted already; the
// conditional update lets exactly one of two racing accepts through.
func (s *Store) AcceptAssignment(ctx context.Context, taskID, userID string) error {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM task_assignees WHERE task_id = $1 AND user_id = $2)
	`, taskID, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check assignee: %w", err)
	}
	if !exists {
		return fmt.Errorf("not an assignee of this task: %w", apperr.ErrForbidden)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE task_assignees SET accepted_at = $1, rejected_at = NULL
		WHERE task_id = $2 AND user_id = $3 AND accepted_at IS NULL
	`, time.Now(), taskID, userID)
	if err != nil {
		return fmt.Errorf("accept assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("already accepted: %w", apperr.ErrConflict)
	}
	return nil
}

// RejectAssignment sets rejected_at and clears accepted_at for the caller,
// then stamps the task-level rejection fields (last rejection wins).
func (s *Store) RejectAssignment(ctx context.Context, taskID, userID, reason string) error {
	now := time.Now()
	tag, err := s.db.Exec(ctx, `
		UPDATE task_assignees SET rejected_at = $1, accepted_at = NULL
		WHERE task_id = $2 AND user_id = $3
	`, now, taskID, userID)
	if err != nil {
		return fmt.Errorf("reject assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("not an assignee of this task: %w", apperr.ErrForbidden)
	}

	_, err = s.db.Exec(ctx, `
		UPDATE tasks SET rejection_reason = $1, rejected_at = $2, updated_at = $2 WHERE id = $3
	`, reason, now, taskID)
	if err != nil {
		return fmt.Errorf("stamp rejection: %w", err)
	}
	return nil
}

// MarkTaskInProgress flips pending -> in_progress. The WHERE guard makes
// the transition happen exactly once under concurrent accepts; callers log
// the status_changed activity only when this returns true.
func (s *Store) MarkTaskInProgress(ctx context.Context, taskID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE tasks SET status = 'in_progress', updated_at = $1
		WHERE id = $2 AND status = 'pending'
	`, time.Now(), taskID)
	if err != nil {
		return false, fmt.Errorf("mark in progress: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkTaskRejected flips pending -> rejected once every assignee rejected
func (s *Store) MarkTaskRejected(ctx context.Context, taskID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE tasks SET status = 'rejected', updated_at = $1
		WHERE id = $2 AND status = 'pending'
	`, time.Now(), taskID)
	if err != nil {
		return false, fmt.Errorf("mark rejected: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateTaskStatus sets an explicit status, stamping completed_at when the
// task reaches completed.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status models.TaskStatus) error {
	now := time.Now()
	var completedAt *time.Time
	if status == models.TaskCompleted {
		completedAt = &now
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE tasks SET status = $1, completed_at = COALESCE($2, completed_at), updated_at = $3
		WHERE id = $4
	`, status, completedAt, now, taskID)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task: %w", apperr.ErrNotFound)
	}
	return nil
}

// AddActivity appends an immutable task activity entry
func (s *Store) AddActivity(ctx context.Context, taskID, userID, kind, detail string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO task_activities (id, task_id, user_id, kind, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), taskID, userID, kind, detail, time.Now())
	if err != nil {
		return fmt.Errorf("add activity: %w", err)
	}
	return nil
}

// TaskActivities returns the activity log in insertion order
func (s *Store) TaskActivities(ctx context.Context, taskID string) ([]models.TaskActivity, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, task_id, user_id, kind, detail, created_at
		FROM task_activities WHERE task_id = $1
		ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	activities := []models.TaskActivity{}
	for rows.Next() {
		var a models.TaskActivity
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.Kind, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// TaskConversationID returns the id of the task's group conversation
func (s *Store) TaskConversationID(ctx context.Context, taskID string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		SELECT id FROM conversations WHERE task_id = $1 AND is_task_group = true
	`, taskID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("task conversation: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query task conversation: %w", err)
	}
	return id, nil
}

// ListTasks returns tasks the user created or is assigned to, optionally
// filtered by status, newest first.
func (s *Store) ListTasks(ctx context.Context, userID string, status *models.TaskStatus) ([]models.TaskWithDetails, error) {
	query := `
		SELECT DISTINCT t.id, t.ref, t.title, t.description, t.status, t.priority, t.created_by,
			t.start_date, t.due_date, t.target_date, t.rejection_reason, t.rejected_at, t.completed_at,
			t.created_at, t.updated_at
		FROM tasks t
		LEFT JOIN task_assignees ta ON ta.task_id = t.id
		WHERE (t.created_by = $1 OR ta.user_id = $1)`
	args := []any{userID}
	if status != nil {
		query += ` AND t.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY t.created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.TaskWithDetails{}
	for rows.Next() {
		var t models.TaskWithDetails
		err := rows.Scan(&t.ID, &t.Ref, &t.Title, &t.Description, &t.Status, &t.Priority, &t.CreatedBy,
			&t.StartDate, &t.DueDate, &t.TargetDate, &t.RejectionReason, &t.RejectedAt, &t.CompletedAt,
			&t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		assignees, err := s.TaskAssignees(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Assignees = assignees
	}

	return tasks, nil
}
