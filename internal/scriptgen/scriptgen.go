// internal/scriptgen/scriptgen.go
package scriptgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/api/schemas"
	"github.com/hollowpoint9/retrace-cli/internal/artifacts"
)

// Generator turns a task description plus the formatted step list into
// script source text. The language-model-backed implementation lives with
// the caller; this package only defines the seam.
type Generator interface {
	Generate(ctx context.Context, task, steps string) (string, error)
}

// FormatSteps renders an action list as the numbered step text handed to a
// Generator. Argument keys are sorted so the output is deterministic.
func FormatSteps(actions []schemas.Action) string {
	var b strings.Builder
	for i, a := range actions {
		fmt.Fprintf(&b, "%d. %s", i+1, a.Type)

		keys := make([]string, 0, len(a.Args))
		for k := range a.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, a.Args[k])
		}
		if a.ScreenshotPath != "" {
			fmt.Fprintf(&b, " screenshot=%s", a.ScreenshotPath)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Service turns recorded action logs into replay scripts via a Generator.
type Service struct {
	gen    Generator
	dir    string
	logger *zap.Logger
}

// NewService creates a script-generation service writing into dir.
func NewService(gen Generator, dir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, dir: dir, logger: logger.Named("scriptgen")}
}

// GenerateScript produces a script for the task from its action list and
// writes it next to the other artifacts. Returns the output path.
func (s *Service) GenerateScript(ctx context.Context, task string, actions []schemas.Action) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("no script generator configured")
	}
	if len(actions) == 0 {
		return "", fmt.Errorf("no actions to generate a script from")
	}

	source, err := s.gen.Generate(ctx, task, FormatSteps(actions))
	if err != nil {
		return "", fmt.Errorf("generating script: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating script dir: %w", err)
	}
	name := fmt.Sprintf("generated_script_%s_%s.go",
		time.Now().Format("20060102_150405"), artifacts.Slug(task))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", fmt.Errorf("writing script: %w", err)
	}

	s.logger.Info("Generated script.", zap.String("path", path))
	return path, nil
}
