package serverlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// currentVersion is the current server list format version.
	currentVersion = 1

	// tempFileSuffix is appended to the file path for atomic writes.
	tempFileSuffix = ".tmp"

	// backupFileSuffix is appended when backing up corrupted files.
	backupFileSuffix = ".bak"

	// lockFileSuffix is appended to create a lock file for inter-process synchronization.
	lockFileSuffix = ".lock"
)

// storage handles file persistence for the server list.
type storage struct {
	path     string
	lockPath string
	mu       sync.Mutex
}

// newStorage creates a new storage instance for the given file path.
func newStorage(path string) *storage {
	return &storage{
		path:     path,
		lockPath: path + lockFileSuffix,
	}
}

// load reads the server list from disk.
// Returns an empty data structure if the file doesn't exist.
// If the file is corrupted, it creates a backup and returns empty data.
// Uses file locking to prevent concurrent access from multiple processes.
func (s *storage) load() (*listData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Acquire inter-process file lock
	lockFile, err := s.acquireFileLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for load: %w", err)
	}
	defer s.releaseFileLock(lockFile)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &listData{
				Version: currentVersion,
				Servers: make(map[string]*Entry),
			}, nil
		}
		return nil, fmt.Errorf("failed to read server list: %w", err)
	}

	// Handle empty file
	if len(data) == 0 {
		return &listData{
			Version: currentVersion,
			Servers: make(map[string]*Entry),
		}, nil
	}

	var list listData
	if err := json.Unmarshal(data, &list); err != nil {
		// File is corrupted, backup and return empty
		backupPath := s.path + backupFileSuffix
		if backupErr := os.Rename(s.path, backupPath); backupErr != nil {
			return nil, fmt.Errorf("failed to parse server list and backup failed: parse error: %w, backup error: %v", err, backupErr)
		}
		return &listData{
			Version: currentVersion,
			Servers: make(map[string]*Entry),
		}, nil
	}

	// Initialize servers map if nil
	if list.Servers == nil {
		list.Servers = make(map[string]*Entry)
	}

	return &list, nil
}

// save writes the server list to disk atomically.
// It writes to a temporary file first, syncs to disk, then renames to the target path.
// Uses file locking to prevent concurrent access from multiple processes.
func (s *storage) save(list *listData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Acquire inter-process file lock
	lockFile, err := s.acquireFileLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock for save: %w", err)
	}
	defer s.releaseFileLock(lockFile)

	// Ensure the directory exists
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Marshal to JSON with indentation for readability
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal server list: %w", err)
	}

	// Write to temporary file
	tempPath := s.path + tempFileSuffix
	tempFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Sync to disk to ensure durability before rename
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
