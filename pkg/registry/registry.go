// Package registry maps opaque numeric handles to live SDK clients.
//
// The C binding cannot hand raw Go pointers across the foreign boundary, so
// every initialized client is registered here and addressed by a uint64
// handle. Handles are never reused within a process lifetime, which turns
// use-after-free at the foreign boundary into a clean ErrInvalidHandle
// instead of a dangling-pointer crash.
package registry

import (
	"sync"

	"github.com/datenlord/sdk-go/pkg/sdk"
	"github.com/datenlord/sdk-go/pkg/storage"
)

// Registry provides thread-safe registration and lookup of SDK clients by
// numeric handle.
//
// Example usage:
//
//	reg := NewRegistry()
//	handle := reg.Register(client)
//
//	client, _ := reg.Get(handle)
//	_ = reg.Release(handle)
type Registry struct {
	mu      sync.RWMutex
	clients map[uint64]*sdk.Client
	next    uint64
}

// NewRegistry creates an empty registry. The zero handle is never issued so
// that 0 can serve as the null handle at the foreign boundary.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uint64]*sdk.Client),
		next:    1,
	}
}

// Register adds a client and returns its freshly issued handle.
func (r *Registry) Register(client *sdk.Client) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := r.next
	r.next++
	r.clients[handle] = client
	return handle
}

// Get retrieves the client for a handle.
// Returns ErrInvalidHandle for the zero handle, an unknown handle, or a
// handle that has already been released.
func (r *Registry) Get(handle uint64) (*sdk.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, exists := r.clients[handle]
	if !exists {
		return nil, storage.Errorf(storage.ErrInvalidHandle, "invalid or released handle: %d", handle)
	}
	return client, nil
}

// Release removes the handle and closes its client.
// Returns ErrInvalidHandle if the handle is unknown or already released;
// otherwise returns the client's Close error, if any. The handle is removed
// in either case and is never issued again.
func (r *Registry) Release(handle uint64) error {
	r.mu.Lock()
	client, exists := r.clients[handle]
	if exists {
		delete(r.clients, handle)
	}
	r.mu.Unlock()

	if !exists {
		return storage.Errorf(storage.ErrInvalidHandle, "invalid or released handle: %d", handle)
	}
	return client.Close()
}

// Count returns the number of live handles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Default is the process-wide registry used by the C binding.
var Default = NewRegistry()
