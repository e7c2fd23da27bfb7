package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tygwan/risk-engine/internal/portfolio"
	"github.com/tygwan/risk-engine/internal/risk"
)

const stateVersion = "1.0"

// EngineState is the recoverable state of the risk engine. The peak value
// in here is what keeps the drawdown peak monotonic across restarts.
type EngineState struct {
	Version      string             `json:"version"`
	SessionStart time.Time          `json:"session_start"`
	SavedAt      time.Time          `json:"saved_at"`
	Portfolio    portfolio.Snapshot `json:"portfolio"`

	// Recent audit trail, newest last; capped to keep the file bounded
	Assessments []risk.RiskAssessment `json:"assessments"`
}

// Store persists engine state as JSON under a state directory
type Store struct {
	dir          string
	mu           sync.Mutex
	current      *EngineState
	maxAuditSize int
}

// NewStore creates a state store rooted at dir
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "state"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Store{
		dir: dir,
		current: &EngineState{
			Version:      stateVersion,
			SessionStart: time.Now(),
		},
		maxAuditSize: 500,
	}, nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, "engine_state.json")
}

// Load reads the persisted state if one exists. A missing file is not an
// error; it returns (nil, nil) and the engine starts fresh.
func (s *Store) Load() (*EngineState, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state EngineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	s.mu.Lock()
	// Carry the audit trail forward into the new session
	s.current.Assessments = state.Assessments
	s.mu.Unlock()

	return &state, nil
}

// RecordAssessment appends a decision to the audit trail
func (s *Store) RecordAssessment(assessment risk.RiskAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Assessments = append(s.current.Assessments, assessment)
	if len(s.current.Assessments) > s.maxAuditSize {
		s.current.Assessments = s.current.Assessments[len(s.current.Assessments)-s.maxAuditSize:]
	}
}

// Assessments returns a copy of the recorded audit trail
func (s *Store) Assessments() []risk.RiskAssessment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]risk.RiskAssessment, len(s.current.Assessments))
	copy(out, s.current.Assessments)
	return out
}

// Save writes the current state atomically: marshal to a temp file in the
// same directory, then rename over the previous snapshot
func (s *Store) Save(snapshot portfolio.Snapshot) error {
	s.mu.Lock()
	s.current.Portfolio = snapshot
	s.current.SavedAt = time.Now()

	data, err := json.MarshalIndent(s.current, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "engine_state_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// LoadFrom reads an engine state file from an arbitrary path, used by the
// offline reporting command
func LoadFrom(path string) (*EngineState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state EngineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	return &state, nil
}
