// Package mocks provides testify mocks for the persistence interfaces.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Backend is a mock implementation of types.Backend and types.Notifier.
type Backend struct {
	mock.Mock
}

func (m *Backend) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *Backend) Kind() string {
	args := m.Called()
	return args.String(0)
}

func (m *Backend) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *Backend) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *Backend) Writable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *Backend) ReadItems() ([]*types.Item, error) {
	args := m.Called()
	if items, ok := args.Get(0).([]*types.Item); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) ReadItem(id string) (*types.Item, error) {
	args := m.Called(id)
	if it, ok := args.Get(0).(*types.Item); ok {
		return it, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) WriteItem(it *types.Item) error {
	args := m.Called(it)
	return args.Error(0)
}

func (m *Backend) DeleteItem(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *Backend) Wake() <-chan struct{} {
	args := m.Called()
	if ch, ok := args.Get(0).(<-chan struct{}); ok {
		return ch
	}
	return nil
}

func (m *Backend) Drain() []string {
	args := m.Called()
	if s, ok := args.Get(0).([]string); ok {
		return s
	}
	return nil
}

// Target is a mock implementation of reconcile.Target.
type Target struct {
	mock.Mock
}

func (m *Target) Lookup(id string) (*types.Item, bool) {
	args := m.Called(id)
	if it, ok := args.Get(0).(*types.Item); ok {
		return it, args.Bool(1)
	}
	return nil, args.Bool(1)
}

func (m *Target) Apply(ev types.Event) {
	m.Called(ev)
}
