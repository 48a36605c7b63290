package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// LoadBranchPolicy reads a Rego module from path and compiles it into a
// branch policy. The module is named after the file.
func LoadBranchPolicy(ctx context.Context, path string, logger zerolog.Logger) (*BranchPolicy, error) {
	if filepath.Ext(path) != ".rego" {
		return nil, fmt.Errorf("branch policy %s: expected a .rego file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read branch policy: %w", err)
	}

	p, err := NewBranchPolicy(ctx, filepath.Base(path), string(data), logger)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("path", path).Msg("Branch policy loaded")
	return p, nil
}
