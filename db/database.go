package db

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"telehealth/config"
)

// Store is a string key-value store. Writes are last-write-wins and there are
// no transactions; callers needing read-modify-write must serialize themselves.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value for key.
	Set(ctx context.Context, key, value string) error
	// Keys returns every key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close flushes any pending writes and releases resources.
	Close() error
}

// MemoryStore holds all entries in memory. When a file path is configured it
// loads the file on start and persists it with a debounced save.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string

	filePath     string
	saveInterval time.Duration
	enableBackup bool

	saveTimer   *time.Timer // Timer for debounced saving
	savePending bool        // A save is queued
	saveMutex   sync.Mutex  // Guards the save timer logic
}

// NewMemoryStore creates a store configured from cfg. An empty StoreFilePath
// gives a purely in-process store.
func NewMemoryStore(cfg *config.Config) (*MemoryStore, error) {
	s := &MemoryStore{
		entries:      make(map[string]string),
		filePath:     cfg.StoreFilePath,
		saveInterval: cfg.SaveInterval,
		enableBackup: cfg.EnableBackup,
	}
	if s.filePath == "" {
		log.Printf("INFO: Initializing in-memory store (no persistence)")
		return s, nil
	}

	log.Printf("INFO: Initializing store with file: %s", s.filePath)
	if err := s.Load(); err != nil {
		log.Printf("ERROR: Store Load failed with critical error: %v", err)
		return nil, err
	}
	return s, nil
}

// Load reads the store state from the configured JSON file.
// A missing or unreadable file leaves the store empty; a file that exists but
// cannot be parsed is a critical error.
func (s *MemoryStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileData, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("INFO: Store file '%s' not found. Initializing empty store.", s.filePath)
		} else {
			log.Printf("ERROR: Failed to read store file '%s': %v. Proceeding with empty state.", s.filePath, err)
		}
		s.entries = make(map[string]string)
		return nil
	}

	loaded := make(map[string]string)
	if err := json.Unmarshal(fileData, &loaded); err != nil {
		log.Printf("CRITICAL: Failed to parse JSON data from store file '%s': %v", s.filePath, err)
		return err
	}
	s.entries = loaded

	log.Printf("INFO: Successfully loaded store from %s. Entries: %d", s.filePath, len(s.entries))
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, found := s.entries[key]
	return value, found, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()

	s.requestSave()
	return nil
}

// Keys implements Store.
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// persist writes the current state to the store file via a temp file and rename.
func (s *MemoryStore) persist() error {
	s.mu.RLock()
	jsonData, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		log.Printf("ERROR: Failed to marshal store state to JSON: %v", err)
		return err
	}

	tempFilePath := s.filePath + ".tmp"
	backupFilePath := s.filePath + ".bak"

	if err := os.WriteFile(tempFilePath, jsonData, 0644); err != nil {
		log.Printf("ERROR: Failed to write to temporary store file '%s': %v", tempFilePath, err)
		return err
	}

	if s.enableBackup {
		if _, err := os.Stat(s.filePath); err == nil {
			if err := os.Rename(s.filePath, backupFilePath); err != nil {
				log.Printf("WARN: Failed to rename '%s' to '%s' for backup: %v. Proceeding with save.", s.filePath, backupFilePath, err)
			} else {
				log.Printf("DEBUG: Created backup file: %s", backupFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("WARN: Error checking status of store file '%s' before backup: %v", s.filePath, err)
		}
	}

	if err := os.Rename(tempFilePath, s.filePath); err != nil {
		log.Printf("ERROR: Failed to atomically rename temporary file '%s' to '%s': %v", tempFilePath, s.filePath, err)
		_ = os.Remove(tempFilePath)
		return err
	}

	log.Printf("INFO: Successfully saved store state to %s", s.filePath)
	return nil
}

// requestSave is called after every write to trigger a debounced save.
func (s *MemoryStore) requestSave() {
	if s.filePath == "" {
		return
	}

	s.saveMutex.Lock()
	defer s.saveMutex.Unlock()

	if s.saveInterval <= 0 {
		go func() {
			if err := s.persist(); err != nil {
				log.Printf("ERROR: Immediate persist failed: %v", err)
			}
		}()
		return
	}

	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.savePending = true

	s.saveTimer = time.AfterFunc(s.saveInterval, func() {
		s.saveMutex.Lock()
		if !s.savePending {
			s.saveMutex.Unlock()
			return
		}
		s.savePending = false
		s.saveMutex.Unlock()

		log.Printf("INFO: Debounced save interval elapsed. Persisting store...")
		if err := s.persist(); err != nil {
			log.Printf("ERROR: Debounced persist failed: %v", err)
		}
	})
}

// Close ensures any pending save operation is completed before shutdown.
func (s *MemoryStore) Close() error {
	var needsFinalPersist bool

	s.saveMutex.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	if s.savePending {
		needsFinalPersist = true
		s.savePending = false
	}
	s.saveMutex.Unlock()

	if needsFinalPersist {
		log.Printf("INFO: Performing final persist operation on close...")
		if err := s.persist(); err != nil {
			log.Printf("ERROR: Final persist operation failed during close: %v", err)
			return err
		}
	}
	return nil
}
