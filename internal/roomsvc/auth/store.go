package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/tombola-service/internal/roomsvc/models"
)

var (
	ErrOperatorNotFound = errors.New("operator not found")
	ErrEmailTaken       = errors.New("operator email already registered")
)

// OperatorStore persists operator accounts. Emails are compared lower-cased.
type OperatorStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Operator, error)
	Create(ctx context.Context, op models.Operator) (int64, error)
}

// MemoryStore keeps accounts for the life of the process. It backs the
// service when no POSTGRES_URL is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	byMail map[string]models.Operator
	nextId int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byMail: make(map[string]models.Operator)}
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.byMail[strings.ToLower(email)]
	if !ok {
		return nil, ErrOperatorNotFound
	}
	return &op, nil
}

func (m *MemoryStore) Create(ctx context.Context, op models.Operator) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(op.Email)
	if _, ok := m.byMail[key]; ok {
		return 0, ErrEmailTaken
	}
	m.nextId++
	op.ID = m.nextId
	op.Email = key
	now := time.Now()
	op.CreatedAt, op.UpdatedAt = now, now
	m.byMail[key] = op
	return op.ID, nil
}
