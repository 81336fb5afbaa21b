// Package store persists the controller record.
//
// File keeps the record in a YAML file that is rewritten through a temp file
// and rename, so a concurrent reader sees either the old or the new record
// and never a partial one. Memory keeps it in process.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	state  model.State
	closed bool
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a Memory store holding s.
func NewMemoryWith(s model.State) *Memory {
	m := &Memory{}
	m.state = copyState(s)
	return m
}

func (m *Memory) Get(ctx context.Context) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return model.State{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return model.State{}, ErrClosed
	}
	return copyState(m.state), nil
}

func (m *Memory) Set(ctx context.Context, p platform.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	p.Apply(&m.state)
	return nil
}

func (m *Memory) Remove(ctx context.Context, keys ...platform.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	platform.Clear(&m.state, keys...)
	return nil
}

// Close makes further operations fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func copyState(s model.State) model.State {
	out := model.State{Layout: s.Layout, ChildIDs: s.ChildIDs.Clone()}
	if s.ControllerWindowID != nil {
		id := *s.ControllerWindowID
		out.ControllerWindowID = &id
	}
	return out
}
