// Package operation provides the domain model for async publish operations.
// An Operation moves through a linear lifecycle:
//
//	pending → running → complete | failed.
//
// While running, the operation carries the latest progress reported by the
// uploader. The store is the authoritative source of truth for operation
// state; HTTP handlers read and write exclusively through it.
package operation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/publish"
)

// Status represents the lifecycle state of an operation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Progress is the most recent upload progress of a running operation.
type Progress struct {
	UniqueAssetCount  int `json:"unique_asset_count"`
	MissingAssetCount int `json:"missing_asset_count"`
}

// Operation represents a single async publish.
type Operation struct {
	ID        string           `json:"id"`
	Status    Status           `json:"status"`
	InputDir  string           `json:"input_dir"`
	Platforms []asset.Platform `json:"platforms"`
	ProjectID string           `json:"project_id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// Progress is nil until the uploader first reports.
	Progress *Progress `json:"progress,omitempty"`

	// Result is populated once the operation reaches StatusComplete.
	Result *publish.Result `json:"result,omitempty"`

	// Error is non-empty if the operation reached StatusFailed.
	Error string `json:"error,omitempty"`
}

// Store is the interface for persisting and retrieving operations. The
// in-memory implementation below is suitable for a single instance.
type Store interface {
	Create(req publish.Request) (*Operation, error)
	Get(id string) (*Operation, error)
	MarkRunning(id string) error
	UpdateProgress(id string, progress Progress) error
	MarkComplete(id string, result *publish.Result) error
	MarkFailed(id string, err error) error
}

// MemoryStore is a concurrency-safe in-memory Store implementation.
type MemoryStore struct {
	mu  sync.RWMutex
	ops map[string]*Operation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]*Operation)}
}

func (s *MemoryStore) Create(req publish.Request) (*Operation, error) {
	now := time.Now()
	op := &Operation{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		InputDir:  req.InputDir,
		Platforms: append([]asset.Platform(nil), req.Platforms...),
		ProjectID: req.ProjectID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.ops[op.ID] = op
	s.mu.Unlock()

	return op, nil
}

func (s *MemoryStore) Get(id string) (*Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[id]
	if !ok {
		return nil, fmt.Errorf("operation %q not found", id)
	}
	// Return a copy to prevent callers from mutating internal state.
	c := *op
	if op.Progress != nil {
		p := *op.Progress
		c.Progress = &p
	}
	if op.Result != nil {
		r := *op.Result
		c.Result = &r
	}
	return &c, nil
}

func (s *MemoryStore) MarkRunning(id string) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusRunning
	})
}

func (s *MemoryStore) UpdateProgress(id string, progress Progress) error {
	return s.update(id, func(op *Operation) {
		op.Progress = &progress
	})
}

func (s *MemoryStore) MarkComplete(id string, result *publish.Result) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusComplete
		op.Result = result
	})
}

func (s *MemoryStore) MarkFailed(id string, err error) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusFailed
		op.Error = err.Error()
	})
}

func (s *MemoryStore) update(id string, fn func(*Operation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[id]
	if !ok {
		return fmt.Errorf("operation %q not found", id)
	}
	fn(op)
	op.UpdatedAt = time.Now()
	return nil
}
