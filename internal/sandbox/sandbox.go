// Package sandbox runs untrusted code in one throwaway container per
// attempt and reports what happened.
package sandbox

import (
	"context"
	"errors"
)

var (
	// ErrValidation marks requests rejected before any container exists.
	ErrValidation = errors.New("invalid execution request")
	// ErrInfrastructure marks failures of the container runtime itself.
	ErrInfrastructure = errors.New("sandbox infrastructure failure")
	ErrUnsafeProfile  = errors.New("unsafe security profile")
)

type Status string

const (
	StatusSuccess          Status = "SUCCESS"
	StatusCompilationError Status = "COMPILATION_ERROR"
	StatusRuntimeError     Status = "RUNTIME_ERROR"
	StatusTimeLimit        Status = "TIME_LIMIT"
	StatusMemoryLimit      Status = "MEMORY_LIMIT"
)

type Metrics struct {
	RuntimeMs int64
	MemoryKb  int64
}

// Request is one run attempt. Zero limits take the policy defaults.
type Request struct {
	Code          string
	Language      string
	Method        string
	Stdin         string
	TimeLimitMs   int
	MemoryLimitMb int
}

type Result struct {
	Status   Status
	Stdout   string
	Stderr   string
	ExitCode int
	Metrics  Metrics
}

// Executor is what the evaluation layer needs from a sandbox.
type Executor interface {
	Run(ctx context.Context, req Request) (*Result, error)
}
