package stores

import (
	"context"
	"time"
)

// PassStatus is the outcome of a configuration pass.
type PassStatus string

const (
	PassStatusSucceeded PassStatus = "succeeded"
	PassStatusFailed    PassStatus = "failed"
)

// Edge is a task dependency added during a pass.
type Edge struct {
	Task      string `json:"task"`
	DependsOn string `json:"depends_on"`
}

// PassRecord is one recorded configuration pass.
type PassRecord struct {
	ID          string        `json:"id"`
	Project     string        `json:"project"`
	Dir         string        `json:"dir"`
	HostVersion string        `json:"host_version"`
	Branch      string        `json:"branch"`
	Release     bool          `json:"release"`
	Development bool          `json:"development"`
	Status      PassStatus    `json:"status"`
	ErrorCode   *string       `json:"error_code,omitempty"`
	Error       *string       `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Report      string        `json:"report,omitempty"` // JSON blob

	Steps []string `json:"steps,omitempty"`
	Edges []Edge   `json:"edges,omitempty"`
}

// ListOptions filters ListPasses.
type ListOptions struct {
	// Project restricts the result to one project. Empty means all.
	Project string
	// Status restricts the result to one outcome. Empty means all.
	Status PassStatus
	Limit  int
	Offset int
}

// Store is the pass history.
type Store interface {
	Init(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
	HealthCheck(ctx context.Context) error

	RecordPass(ctx context.Context, pass *PassRecord) error
	GetPass(ctx context.Context, id string) (*PassRecord, error)
	ListPasses(ctx context.Context, opts ListOptions) ([]*PassRecord, error)
	LastPass(ctx context.Context, project string) (*PassRecord, error)
	Prune(ctx context.Context, project string, keep int) (int64, error)
}

var _ Store = (*SQLiteStore)(nil)
