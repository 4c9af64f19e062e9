// Package serverlist provides persistent storage for known servers.
// It keeps the list in a JSON file and provides CRUD operations with
// blacklist support.
package serverlist

import (
	"net"
	"strconv"
	"time"
)

// Entry represents one server in the list.
type Entry struct {
	// Host is the server's IP address or hostname.
	Host string `json:"host"`

	// Port is the server's TCP port.
	Port int `json:"port"`

	// PublicKey is the server's static Ed25519 public key.
	PublicKey []byte `json:"public_key"`

	// Metadata holds application-defined key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`

	// LastSeen is the timestamp of the last successful connection.
	LastSeen time.Time `json:"last_seen,omitempty"`

	// Blacklisted indicates if this server is blacklisted.
	Blacklisted bool `json:"blacklisted"`

	// CreatedAt is when this entry was first created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when this entry was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Addr returns the host:port dial address of the entry.
func (e *Entry) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Clone creates a deep copy of the Entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	clone := &Entry{
		Host:        e.Host,
		Port:        e.Port,
		Blacklisted: e.Blacklisted,
		LastSeen:    e.LastSeen,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}

	if len(e.PublicKey) > 0 {
		clone.PublicKey = make([]byte, len(e.PublicKey))
		copy(clone.PublicKey, e.PublicKey)
	}

	if len(e.Metadata) > 0 {
		clone.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}

	return clone
}

// listData is the internal structure for JSON serialization.
type listData struct {
	Version int               `json:"version"`
	Servers map[string]*Entry `json:"servers"`
}
