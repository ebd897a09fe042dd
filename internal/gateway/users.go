package gateway

import (
	"errors"
	"sync"

	"coursechat/internal/common"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// User is a gateway account. Passwords are stored as bcrypt hashes.
type User struct {
	ID           string
	Name         string
	Role         common.SenderRole
	PasswordHash string
}

// UserDirectory authenticates login attempts against registered accounts.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[string]*User)}
}

// Register adds an account, hashing the given password.
func (d *UserDirectory) Register(id, name, password string, role common.SenderRole) error {
	if err := common.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := common.HashPassword(password)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = &User{ID: id, Name: name, Role: role, PasswordHash: hash}
	return nil
}

// Authenticate returns the account when the password matches.
func (d *UserDirectory) Authenticate(id, password string) (*User, error) {
	d.mu.RLock()
	user, ok := d.users[id]
	d.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := common.CheckPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Lookup finds an account by ID.
func (d *UserDirectory) Lookup(id string) (*User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[id]
	return user, ok
}
