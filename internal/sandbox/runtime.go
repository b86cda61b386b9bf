package sandbox

import (
	"context"
	"time"
)

type ContainerSpec struct {
	Name       string
	Image      string
	Cmd        []string
	WorkingDir string
	Labels     map[string]string
	Profile    SecurityProfile
}

type ExecSpec struct {
	Cmd        []string
	Env        []string
	WorkingDir string
}

type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runtime is the container API the Manager relies on. Exec must return
// when ctx is done, with an error wrapping ctx.Err().
type Runtime interface {
	Create(ctx context.Context, spec ContainerSpec) (string, error)
	Start(ctx context.Context, id string) error
	WriteFile(ctx context.Context, id, path string, content []byte) error
	Exec(ctx context.Context, id string, spec ExecSpec) (*ExecResult, error)
	// MemoryUsage returns current usage in bytes, excluding page cache.
	MemoryUsage(ctx context.Context, id string) (int64, error)
	Stop(ctx context.Context, id string, timeout time.Duration) error
	Remove(ctx context.Context, id string) error
	EnsureImage(ctx context.Context, image string) error
	Close() error
}
