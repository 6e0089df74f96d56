package services

import (
	"context"
	"sort"
	"sync"

	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/ports"
)

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*entities.User
	nextID    int64
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*entities.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[user.Username]; ok {
		return entities.ErrUsernameTaken
	}
	f.nextID++
	user.ID = f.nextID
	stored := *user
	f.users[user.Username] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeTaskRepo struct {
	mu     sync.Mutex
	tasks  map[int64]*entities.Task
	nextID int64
	err    error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[int64]*entities.Task{}}
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *entities.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	task.ID = f.nextID
	stored := *task
	f.tasks[task.ID] = &stored
	return nil
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, id int64) (*entities.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

func (f *fakeTaskRepo) List(ctx context.Context) ([]*entities.Task, error) {
	return f.filter(func(*entities.Task) bool { return true })
}

func (f *fakeTaskRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Task, error) {
	return f.filter(func(t *entities.Task) bool { return t.IsOwnedBy(ownerID) })
}

func (f *fakeTaskRepo) filter(keep func(*entities.Task) bool) ([]*entities.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []*entities.Task{}
	for _, task := range f.tasks {
		if keep(task) {
			cp := *task
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, id int64, changes ports.TaskChanges) (*entities.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	task, ok := f.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	task.Title = changes.Title
	if changes.Description != nil {
		task.Description = *changes.Description
	}
	if changes.Status != nil {
		task.Status = *changes.Status
	}
	return &entities.Task{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		OwnerID:     task.OwnerID,
	}, nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.tasks[id]; !ok {
		return entities.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}
