package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/mirror"
)

// Store keeps mirrored rows in process. It backs local runs and tests.
type Store struct {
	mu   sync.Mutex
	rows []mirror.Row
}

var _ mirror.Writer = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r mirror.Row) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the stored rows in append order.
func (s *Store) Rows() []mirror.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mirror.Row(nil), s.rows...)
}
