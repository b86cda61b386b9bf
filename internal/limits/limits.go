// Package limits holds the resource policy shared by the sandbox and the
// evaluation orchestrator. A Policy is read-only once the process has started.
package limits

import (
	"errors"
	"fmt"
	"time"
)

// Policy is the set of static, overridable limits applied to every run.
type Policy struct {
	DefaultTimeLimitMs      int   `default:"2000"`
	DefaultMemoryLimitMb    int   `default:"256"`
	MaxContainerLifetimeSec int   `default:"30"`
	MaxCodeSizeKb           int   `default:"50"`
	MaxTestCaseSizeKb       int   `default:"10"`
	PidsLimit               int64 `default:"50"`
	ExecGraceMs             int   `default:"1000"`
	CPUQuota                int64 `default:"100000"`
	CPUPeriod               int64 `default:"100000"`
	ScratchSizeMb           int   `default:"64"`
}

// HarnessAllowanceBytes is added to the submission size limit for the
// generated wrapper around it.
const HarnessAllowanceBytes = 16 * 1024

var ErrInvalidPolicy = errors.New("invalid resource policy")

// Default returns the policy used when nothing is configured.
func Default() Policy {
	return Policy{
		DefaultTimeLimitMs:      2000,
		DefaultMemoryLimitMb:    256,
		MaxContainerLifetimeSec: 30,
		MaxCodeSizeKb:           50,
		MaxTestCaseSizeKb:       10,
		PidsLimit:               50,
		ExecGraceMs:             1000,
		CPUQuota:                100000,
		CPUPeriod:               100000,
		ScratchSizeMb:           64,
	}
}

func (p Policy) Validate() error {
	checks := []struct {
		name  string
		value int64
	}{
		{"default time limit", int64(p.DefaultTimeLimitMs)},
		{"default memory limit", int64(p.DefaultMemoryLimitMb)},
		{"max container lifetime", int64(p.MaxContainerLifetimeSec)},
		{"max code size", int64(p.MaxCodeSizeKb)},
		{"max test case size", int64(p.MaxTestCaseSizeKb)},
		{"pids limit", p.PidsLimit},
		{"scratch size", int64(p.ScratchSizeMb)},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidPolicy, c.name, c.value)
		}
	}
	if p.ExecGraceMs < 0 {
		return fmt.Errorf("%w: exec grace must not be negative", ErrInvalidPolicy)
	}
	if p.DefaultTimeLimitMs+p.ExecGraceMs > p.MaxContainerLifetimeSec*1000 {
		return fmt.Errorf("%w: container lifetime %ds is shorter than the default time limit plus grace",
			ErrInvalidPolicy, p.MaxContainerLifetimeSec)
	}
	return nil
}

// TimeLimit returns ms, or the default when ms is not positive.
func (p Policy) TimeLimit(ms int) int {
	if ms <= 0 {
		return p.DefaultTimeLimitMs
	}
	return ms
}

// MemoryLimit returns mb, or the default when mb is not positive.
func (p Policy) MemoryLimit(mb int) int {
	if mb <= 0 {
		return p.DefaultMemoryLimitMb
	}
	return mb
}

// WallClock is the caller-enforced exec timeout for a run with the given time limit.
func (p Policy) WallClock(timeLimitMs int) time.Duration {
	return time.Duration(timeLimitMs+p.ExecGraceMs) * time.Millisecond
}

func (p Policy) Lifetime() time.Duration {
	return time.Duration(p.MaxContainerLifetimeSec) * time.Second
}

func (p Policy) MaxCodeBytes() int {
	return p.MaxCodeSizeKb * 1024
}

// MaxProgramBytes bounds a generated program: the submission plus harness.
func (p Policy) MaxProgramBytes() int {
	return p.MaxCodeBytes() + HarnessAllowanceBytes
}

func (p Policy) MaxInputBytes() int {
	return p.MaxTestCaseSizeKb * 1024
}
