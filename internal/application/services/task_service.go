package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/infrastructure/logger"
	"github.com/xpresstask/core/internal/ports"
)

// TaskService handles task-related operations
type TaskService struct {
	taskRepo ports.TaskRepository
	logger   *logger.Logger
	now      func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		logger:   logger.WithComponent("tasks"),
		now:      time.Now,
	}
}

// ListAll returns every task with its owner's username
func (s *TaskService) ListAll(ctx context.Context) ([]*entities.Task, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// ListMine returns the tasks owned by the caller
func (s *TaskService) ListMine(ctx context.Context, identity ports.Identity) ([]*entities.Task, error) {
	tasks, err := s.taskRepo.ListByOwner(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for user %d: %w", identity.UserID, err)
	}
	return tasks, nil
}

// Create stores a new task owned by the caller
func (s *TaskService) Create(ctx context.Context, identity ports.Identity, req ports.TaskRequest) (*entities.Task, error) {
	if err := entities.ValidateTitle(req.Title); err != nil {
		return nil, err
	}

	ownerID := identity.UserID
	task := &entities.Task{
		Title:     req.Title,
		Status:    entities.TaskStatusOpen,
		CreatedAt: s.now().UTC(),
		OwnerID:   &ownerID,
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil && *req.Status != "" {
		task.Status = *req.Status
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	task.Owner = &entities.TaskOwner{Username: identity.Username}

	s.logger.Infow("Task created successfully", "task_id", task.ID, "owner_id", ownerID)

	return task, nil
}

// Update overwrites the title and, when present, the description and status
// of a task. The stored creation time is left alone; the returned task
// carries the time of the update.
func (s *TaskService) Update(ctx context.Context, id int64, req ports.TaskRequest) (*entities.Task, error) {
	if err := entities.ValidateTitle(req.Title); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.Update(ctx, id, ports.TaskChanges{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update task %d: %w", id, err)
	}
	task.CreatedAt = s.now().UTC()

	s.logger.Infow("Task updated successfully", "task_id", task.ID)

	return task, nil
}

// Delete removes a task
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}

	s.logger.Infow("Task deleted successfully", "task_id", id)

	return nil
}
