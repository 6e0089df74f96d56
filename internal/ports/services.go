package ports

import (
	"context"

	"github.com/xpresstask/core/internal/domain/entities"
)

// AuthService interface for authentication operations
type AuthService interface {
	Signup(ctx context.Context, req CredentialsRequest) (*AuthResponse, error)
	Login(ctx context.Context, req CredentialsRequest) (*AuthResponse, error)
	Verify(tokenString string) (*Identity, error)
}

// TaskService interface for task management operations
type TaskService interface {
	ListAll(ctx context.Context) ([]*entities.Task, error)
	ListMine(ctx context.Context, identity Identity) ([]*entities.Task, error)
	Create(ctx context.Context, identity Identity, req TaskRequest) (*entities.Task, error)
	Update(ctx context.Context, id int64, req TaskRequest) (*entities.Task, error)
	Delete(ctx context.Context, id int64) error
}

// Identity is the caller asserted by a verified token
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Request/Response Types

// CredentialsRequest is the body of /signup and /login
type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

// TaskRequest is the body of POST /tasks and PUT /tasks/:id. Description and
// Status are pointers so an absent field can be told apart from an empty one.
type TaskRequest struct {
	Title       string               `json:"title" validate:"required"`
	Description *string              `json:"description"`
	Status      *entities.TaskStatus `json:"status"`
}
