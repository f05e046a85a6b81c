package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"reelscraper/pkg/logger"
)

const fileName = "daily.checkpoint.json"

// Checkpoint records which sources of an interrupted daily run already
// finished.
type Checkpoint struct {
	RunID string `json:"run_id"`
	// CompletedSources maps a source key to the reels it added
	CompletedSources map[string]int `json:"completed_sources"`
	TotalAdded       int            `json:"total_added"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Version          int            `json:"version"`
}

// SourceKey identifies a source across runs.
func SourceKey(sourceType, sourceID string) string {
	return sourceType + ":" + sourceID
}

// IsSourceDone reports whether key finished in the checkpointed run.
func (c *Checkpoint) IsSourceDone(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.CompletedSources[key]
	return ok
}

// Manager reads and writes the checkpoint file. It is safe for concurrent
// use by pipeline workers.
type Manager struct {
	checkpointPath string
	logger         logger.Logger
	mu             sync.Mutex
}

// NewManager stores checkpoints in dir, or in the platform data directory
// when dir is empty.
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "checkpoints")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		checkpointPath: filepath.Join(dir, fileName),
		logger:         log.WithField("component", "checkpoint"),
	}, nil
}

// Path returns the checkpoint file location.
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create starts a fresh checkpoint for runID, replacing any previous one.
func (m *Manager) Create(runID string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		RunID:            runID,
		CompletedSources: make(map[string]int),
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"run_id": runID,
		"path":   m.checkpointPath,
	})
	return cp, nil
}

// Load returns the stored checkpoint, or nil when there is none.
func (m *Manager) Load() (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.CompletedSources == nil {
		cp.CompletedSources = make(map[string]int)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"run_id":            cp.RunID,
		"completed_sources": len(cp.CompletedSources),
		"updated_at":        cp.UpdatedAt,
	})
	return &cp, nil
}

// Save writes cp atomically through a temp file and rename.
func (m *Manager) Save(cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(cp)
}

func (m *Manager) save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// RecordSource marks key as finished and persists the checkpoint.
func (m *Manager) RecordSource(cp *Checkpoint, key string, added int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp.CompletedSources[key] = added
	cp.TotalAdded += added
	if err := m.save(cp); err != nil {
		return err
	}

	m.logger.DebugWithFields("Checkpoint updated", map[string]interface{}{
		"source":      key,
		"total_added": cp.TotalAdded,
	})
	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "reelscraper")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "reelscraper")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "reelscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "reelscraper")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
