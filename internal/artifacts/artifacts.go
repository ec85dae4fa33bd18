// internal/artifacts/artifacts.go
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/api/schemas"
)

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug reduces a task description to a short filesystem-safe token.
func Slug(task string) string {
	s := strings.ToLower(strings.TrimSpace(task))
	s = slugCleanRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "task"
	}
	const maxLen = 40
	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "_")
	}
	return s
}

// FileName builds the deterministic action-log name for a task recorded at
// a given time, e.g. "actions_20260830_142301_login_flow.json".
func FileName(task string, at time.Time) string {
	return fmt.Sprintf("actions_%s_%s.json", at.Format("20060102_150405"), Slug(task))
}

// Store writes and reads action logs under a generated-artifacts directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifacts dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger.Named("artifacts")}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// SaveActions persists an action list for a task and returns the file path.
func (s *Store) SaveActions(task string, at time.Time, actions []schemas.Action) (string, error) {
	data, err := schemas.MarshalActionLog(actions)
	if err != nil {
		return "", fmt.Errorf("marshaling action log: %w", err)
	}

	path := filepath.Join(s.dir, FileName(task, at))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing action log: %w", err)
	}

	s.logger.Info("Saved action log.",
		zap.String("path", path), zap.Int("actions", len(actions)))
	return path, nil
}

// LoadActions reads an action log from any path, accepting both on-disk
// shapes (bare array or {"actions": [...]}).
func LoadActions(path string) ([]schemas.Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading action log %s: %w", path, err)
	}
	actions, err := schemas.ParseActionLog(data)
	if err != nil {
		return nil, fmt.Errorf("parsing action log %s: %w", path, err)
	}
	return actions, nil
}

// ScreenshotPath names a screenshot file alongside the action logs.
func (s *Store) ScreenshotPath(task string, at time.Time, step int) string {
	name := fmt.Sprintf("screenshot_%s_%s_%03d.png", at.Format("20060102_150405"), Slug(task), step)
	return filepath.Join(s.dir, name)
}
