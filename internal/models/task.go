package models

import "time"

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskRejected   TaskStatus = "rejected"
)

// TaskPriority defines the possible priorities for a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Activity kinds logged per task state transition
const (
	ActivityCreated       = "created"
	ActivityAccepted      = "accepted"
	ActivityRejected      = "rejected"
	ActivityStatusChanged = "status_changed"
)

// Task represents a task coordinated through the platform. Overall status
// is driven by the set of assignee accept/reject actions.
type Task struct {
	ID              string       `json:"id" db:"id"`
	Ref             string       `json:"ref" db:"ref"` // Format: #WORD-123
	Title           string       `json:"title" db:"title"`
	Description     string       `json:"description" db:"description"`
	Status          TaskStatus   `json:"status" db:"status"`
	Priority        TaskPriority `json:"priority" db:"priority"`
	CreatedBy       string       `json:"createdBy" db:"created_by"`
	StartDate       *time.Time   `json:"startDate,omitempty" db:"start_date"`
	DueDate         *time.Time   `json:"dueDate,omitempty" db:"due_date"`
	TargetDate      *time.Time   `json:"targetDate,omitempty" db:"target_date"`
	RejectionReason *string      `json:"rejectionReason,omitempty" db:"rejection_reason"`
	RejectedAt      *time.Time   `json:"rejectedAt,omitempty" db:"rejected_at"`
	CompletedAt     *time.Time   `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt       time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time    `json:"updatedAt" db:"updated_at"`
}

// TaskAssignee links a user to a task. accepted_at and rejected_at are
// mutually exclusive: accepting clears rejection and vice versa.
type TaskAssignee struct {
	TaskID     string     `json:"taskId" db:"task_id"`
	UserID     string     `json:"userId" db:"user_id"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty" db:"accepted_at"`
	RejectedAt *time.Time `json:"rejectedAt,omitempty" db:"rejected_at"`
}

// TaskActivity is an append-only log entry, immutable once written
type TaskActivity struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"taskId" db:"task_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Kind      string    `json:"kind" db:"kind"`
	Detail    string    `json:"detail" db:"detail"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// TaskWithDetails includes assignees and the activity log
type TaskWithDetails struct {
	Task
	Assignees      []TaskAssignee `json:"assignees"`
	Activities     []TaskActivity `json:"activities,omitempty"`
	ConversationID *string        `json:"conversationId,omitempty"`
}
