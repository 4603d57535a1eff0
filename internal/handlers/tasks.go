package handlers

import (
	"time"

	"tugasin/server/internal/middleware"
	"tugasin/server/internal/models"
	"tugasin/server/internal/taskflow"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler serves the task workflow REST surface
type TaskHandler struct {
	svc *taskflow.Service
}

// NewTaskHandler creates the task handler
func NewTaskHandler(svc *taskflow.Service) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// CreateTaskRequest represents create task request body
type CreateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	AssigneeIDs []string            `json:"assigneeIds"`
	StartDate   *time.Time          `json:"startDate,omitempty"`
	DueDate     *time.Time          `json:"dueDate,omitempty"`
	TargetDate  *time.Time          `json:"targetDate,omitempty"`
}

// RejectTaskRequest represents reject task request body
type RejectTaskRequest struct {
	Reason string `json:"reason"`
}

// UpdateStatusRequest represents status update request body
type UpdateStatusRequest struct {
	Status models.TaskStatus `json:"status"`
}

// Create creates a task with its group conversation, transactionally
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	task, err := h.svc.Create(c.Context(), middleware.GetUserID(c), taskflow.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssigneeIDs: req.AssigneeIDs,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		TargetDate:  req.TargetDate,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// List returns the caller's tasks, optionally filtered by ?status=
func (h *TaskHandler) List(c *fiber.Ctx) error {
	var status *models.TaskStatus
	if q := c.Query("status"); q != "" {
		st := models.TaskStatus(q)
		status = &st
	}

	tasks, err := h.svc.List(c.Context(), middleware.GetUserID(c), status)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    tasks,
	})
}

// Get returns one task with assignees and its activity log
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	task, err := h.svc.Get(c.Context(), c.Params("taskId"), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// Accept records the caller's acceptance and applies the quorum rule
func (h *TaskHandler) Accept(c *fiber.Ctx) error {
	task, err := h.svc.Accept(c.Context(), c.Params("taskId"), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// Reject records the caller's rejection; reason is mandatory
func (h *TaskHandler) Reject(c *fiber.Ctx) error {
	var req RejectTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	task, err := h.svc.Reject(c.Context(), c.Params("taskId"), middleware.GetUserID(c), req.Reason)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// UpdateStatus applies an explicit status change
func (h *TaskHandler) UpdateStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	task, err := h.svc.UpdateStatus(c.Context(), c.Params("taskId"), middleware.GetUserID(c), req.Status)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}
