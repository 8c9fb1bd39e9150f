package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"cmaxbonds/internal/domain"
)

// userRecord is the on-disk shape of a user, keyed by username in the file
type userRecord struct {
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// UserJSONRepository implements UserRepository over a single JSON file.
// Every operation re-reads the file, so edits made by other processes are
// picked up; concurrent writers still overwrite each other.
type UserJSONRepository struct {
	path string
	mu   sync.Mutex
}

// NewUserJSONRepository creates a repository backed by the file at path
func NewUserJSONRepository(path string) *UserJSONRepository {
	return &UserJSONRepository{path: path}
}

// Create adds a new user
func (r *UserJSONRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := users[user.Username]; ok {
		return fmt.Errorf("create %q: %w", user.Username, domain.ErrUserExists)
	}

	users[user.Username] = userRecord{Password: user.Password, Email: user.Email, Role: user.Role}
	return r.save(users)
}

// GetByUsername retrieves a user by username
func (r *UserJSONRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	rec, ok := users[username]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", username, domain.ErrUserNotFound)
	}
	return toUser(username, rec), nil
}

// GetAll retrieves all users ordered by username
func (r *UserJSONRepository) GetAll(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make([]*domain.User, 0, len(users))
	for name, rec := range users {
		out = append(out, toUser(name, rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// UpdatePassword replaces the stored password of a user
func (r *UserJSONRepository) UpdatePassword(_ context.Context, username, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	rec, ok := users[username]
	if !ok {
		return fmt.Errorf("update password of %q: %w", username, domain.ErrUserNotFound)
	}

	rec.Password = password
	users[username] = rec
	return r.save(users)
}

// Delete removes a user
func (r *UserJSONRepository) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := users[username]; !ok {
		return fmt.Errorf("delete %q: %w", username, domain.ErrUserNotFound)
	}

	delete(users, username)
	return r.save(users)
}

// load reads the whole file; a missing file is an empty store
func (r *UserJSONRepository) load() (map[string]userRecord, error) {
	users := make(map[string]userRecord)

	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return users, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	if len(b) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(b, &users); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", r.path, err)
	}
	return users, nil
}

// save writes to a temp file and renames it over the original
func (r *UserJSONRepository) save(users map[string]userRecord) error {
	b, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create users dir: %w", err)
		}
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

func toUser(username string, rec userRecord) *domain.User {
	return &domain.User{
		Username: username,
		Password: rec.Password,
		Email:    rec.Email,
		Role:     rec.Role,
	}
}
