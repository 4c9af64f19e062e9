package serverlist

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"
)

const (
	// flushInterval is how often the list flushes dirty changes to disk.
	flushInterval = 5 * time.Second
)

// List manages the known-server list with persistence and thread-safe
// operations. Critical changes (add, remove, blacklist) are saved
// immediately. Non-critical changes (LastSeen updates) are batched and
// flushed periodically.
type List struct {
	storage *storage
	servers map[string]*Entry
	mu      sync.RWMutex

	// dirty indicates there are unsaved changes from batched operations
	dirty bool

	// ctx and cancel control the background flush goroutine
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server list backed by the given file path. If the file
// exists, it loads the existing data. Otherwise it starts empty. The
// returned List must be closed with Close to ensure all changes are
// persisted.
func New(path string) (*List, error) {
	s := newStorage(path)

	data, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load server list: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	l := &List{
		storage: s,
		servers: data.Servers,
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.flushLoop()

	return l, nil
}

// Load reads the server list file once and returns all non-blacklisted
// entries. Unlike New it does not keep the file open for updates; use it
// to bootstrap a client configuration.
func Load(path string) ([]*Entry, error) {
	s := newStorage(path)

	data, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load server list: %w", err)
	}

	result := make([]*Entry, 0, len(data.Servers))
	for _, entry := range data.Servers {
		if !entry.Blacklisted {
			result = append(result, entry.Clone())
		}
	}
	return result, nil
}

// Add adds or updates a server. If the server already exists, it updates
// the public key and metadata. Returns an error if the server is
// blacklisted. The key and metadata are copied to prevent external
// modification.
func (l *List) Add(host string, port int, publicKey ed25519.PublicKey, metadata map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	keyCopy := make([]byte, len(publicKey))
	copy(keyCopy, publicKey)

	var metadataCopy map[string]string
	if metadata != nil {
		metadataCopy = make(map[string]string, len(metadata))
		for k, v := range metadata {
			metadataCopy[k] = v
		}
	}

	entry := &Entry{Host: host, Port: port}
	key := entry.Addr()

	if existing, ok := l.servers[key]; ok {
		if existing.Blacklisted {
			return fmt.Errorf("cannot update blacklisted server %s", key)
		}
		existing.PublicKey = keyCopy
		if metadataCopy != nil {
			existing.Metadata = metadataCopy
		}
		existing.UpdatedAt = now
	} else {
		entry.PublicKey = keyCopy
		entry.Metadata = metadataCopy
		entry.CreatedAt = now
		entry.UpdatedAt = now
		l.servers[key] = entry
	}

	return l.saveLocked()
}

// Remove removes a server by its host:port address.
// Returns an error if the server doesn't exist.
func (l *List) Remove(addr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.servers[addr]; !ok {
		return fmt.Errorf("server %s not found", addr)
	}

	delete(l.servers, addr)
	return l.saveLocked()
}

// Get retrieves a server entry by its host:port address.
// Returns a copy of the entry to prevent external modification.
// Returns an error if the server doesn't exist.
func (l *List) Get(addr string) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.servers[addr]
	if !ok {
		return nil, fmt.Errorf("server %s not found", addr)
	}

	return entry.Clone(), nil
}

// Servers returns all non-blacklisted servers.
// Returns copies of the entries to prevent external modification.
func (l *List) Servers() []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Entry, 0, len(l.servers))
	for _, entry := range l.servers {
		if !entry.Blacklisted {
			result = append(result, entry.Clone())
		}
	}
	return result
}

// AllServers returns all servers including blacklisted ones.
// Returns copies of the entries to prevent external modification.
func (l *List) AllServers() []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Entry, 0, len(l.servers))
	for _, entry := range l.servers {
		result = append(result, entry.Clone())
	}
	return result
}

// Blacklist marks a server as blacklisted.
// Returns an error if the server doesn't exist.
func (l *List) Blacklist(addr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.servers[addr]
	if !ok {
		return fmt.Errorf("server %s not found", addr)
	}

	entry.Blacklisted = true
	entry.UpdatedAt = time.Now()
	return l.saveLocked()
}

// Unblacklist removes the blacklist flag from a server.
// Returns an error if the server doesn't exist.
func (l *List) Unblacklist(addr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.servers[addr]
	if !ok {
		return fmt.Errorf("server %s not found", addr)
	}

	entry.Blacklisted = false
	entry.UpdatedAt = time.Now()
	return l.saveLocked()
}

// IsBlacklisted checks if a server is blacklisted.
// Returns false if the server doesn't exist.
func (l *List) IsBlacklisted(addr string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.servers[addr]
	if !ok {
		return false
	}
	return entry.Blacklisted
}

// TouchLastSeen updates the last seen timestamp for a server.
// This is a batched operation, persisted periodically rather than
// immediately. Returns an error if the server doesn't exist.
func (l *List) TouchLastSeen(addr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.servers[addr]
	if !ok {
		return fmt.Errorf("server %s not found", addr)
	}

	now := time.Now()
	entry.LastSeen = now
	entry.UpdatedAt = now
	l.dirty = true
	return nil
}

// UpdateMetadata updates the metadata for a server.
// This merges with existing metadata; to remove keys, set them to empty
// string. Returns an error if the server doesn't exist.
func (l *List) UpdateMetadata(addr string, metadata map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.servers[addr]
	if !ok {
		return fmt.Errorf("server %s not found", addr)
	}

	if entry.Metadata == nil {
		entry.Metadata = make(map[string]string)
	}

	for k, v := range metadata {
		if v == "" {
			delete(entry.Metadata, k)
		} else {
			entry.Metadata[k] = v
		}
	}

	entry.UpdatedAt = time.Now()
	return l.saveLocked()
}

// Has checks if a server exists in the list.
func (l *List) Has(addr string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.servers[addr]
	return ok
}

// Count returns the total number of servers (including blacklisted).
func (l *List) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.servers)
}

// CountActive returns the number of non-blacklisted servers.
func (l *List) CountActive() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, entry := range l.servers {
		if !entry.Blacklisted {
			count++
		}
	}
	return count
}

// Clear removes all servers from the list.
func (l *List) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.servers = make(map[string]*Entry)
	return l.saveLocked()
}

// saveLocked saves the list to disk.
// Must be called with the write lock held.
func (l *List) saveLocked() error {
	data := &listData{
		Version: currentVersion,
		Servers: l.servers,
	}
	if err := l.storage.save(data); err != nil {
		return err
	}
	l.dirty = false
	return nil
}

// Reload reloads the list from disk, discarding in-memory changes.
func (l *List) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.storage.load()
	if err != nil {
		return fmt.Errorf("failed to reload server list: %w", err)
	}

	l.servers = data.Servers
	l.dirty = false
	return nil
}

// flushLoop runs in the background and periodically flushes dirty changes
// to disk.
func (l *List) flushLoop() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			if l.dirty {
				// Ignore error in background flush - will retry next interval
				_ = l.saveLocked()
			}
			l.mu.Unlock()
		}
	}
}

// Flush explicitly saves any pending changes to disk.
func (l *List) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}
	return l.saveLocked()
}

// Close stops the background flush goroutine and saves any pending
// changes. The List should not be used after Close is called.
func (l *List) Close() error {
	l.cancel()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dirty {
		return l.saveLocked()
	}
	return nil
}
