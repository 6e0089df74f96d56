package ports

import (
	"context"

	"github.com/xpresstask/core/internal/domain/entities"
)

// UserRepository defines the interface for credential storage
type UserRepository interface {
	// Create inserts the user and sets its ID. A duplicate username yields
	// entities.ErrUsernameTaken.
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id int64) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id int64) (*entities.Task, error)
	// List returns every task joined with its owner's username.
	List(ctx context.Context) ([]*entities.Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Task, error)
	// Update overwrites the title and, when non-nil, description and status.
	// The returned task has no CreatedAt.
	Update(ctx context.Context, id int64, changes TaskChanges) (*entities.Task, error)
	Delete(ctx context.Context, id int64) error
}

// TaskChanges is the column set written by TaskRepository.Update
type TaskChanges struct {
	Title       string
	Description *string
	Status      *entities.TaskStatus
}
