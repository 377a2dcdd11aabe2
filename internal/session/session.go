// Package session holds the logged-in identity of one client device.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// StorageKey is the local storage key holding the persisted identity
const StorageKey = "qgo_user"

// Role is the wire tag of a session
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleDriver Role = "DRIVER"
)

var ErrInvalidSession = errors.New("invalid session")

// Session is either Admin or Driver. The interface is sealed.
type Session interface {
	Role() Role
	isSession()
}

// Admin is the dispatcher
type Admin struct{}

func (Admin) Role() Role { return RoleAdmin }
func (Admin) isSession() {}

// Driver is a logged-in driver
type Driver struct {
	ID string
}

func (Driver) Role() Role { return RoleDriver }
func (Driver) isSession() {}

// Match calls the arm for the concrete session type. Both arms are required.
func Match[T any](s Session, admin func(Admin) T, driver func(Driver) T) T {
	switch v := s.(type) {
	case Admin:
		return admin(v)
	case Driver:
		return driver(v)
	}
	panic(fmt.Sprintf("session: unknown session type %T", s))
}

// New builds a session from its wire form
func New(role Role, driverID string) (Session, error) {
	switch role {
	case RoleAdmin:
		return Admin{}, nil
	case RoleDriver:
		if driverID == "" {
			return nil, fmt.Errorf("%w: driver session without id", ErrInvalidSession)
		}
		return Driver{ID: driverID}, nil
	}
	return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidSession, role)
}

// Record is the persisted JSON form
type Record struct {
	Role Role   `json:"role"`
	ID   string `json:"id,omitempty"`
}

func ToRecord(s Session) Record {
	return Match(s,
		func(Admin) Record { return Record{Role: RoleAdmin} },
		func(d Driver) Record { return Record{Role: RoleDriver, ID: d.ID} },
	)
}

// KV is device-local persistent key-value storage
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store keeps the current session in memory and in a KV.
// A persisted session stays valid until Logout.
type Store struct {
	kv      KV
	mu      sync.RWMutex
	current Session
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) Login(ctx context.Context, sess Session) error {
	data, err := json.Marshal(ToRecord(sess))
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return nil
}

func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Restore re-establishes the persisted session, if any
func (s *Store) Restore(ctx context.Context) (Session, bool, error) {
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	sess, err := New(rec.Role, rec.ID)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return sess, true, nil
}

func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}
