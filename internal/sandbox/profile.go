package sandbox

import (
	"fmt"

	"github.com/itstheanurag/codejudge/internal/limits"
)

const (
	ScratchDir = "/sandbox"
	InputFile  = "input.txt"

	// Extra room above the requested memory limit so that the per-request
	// check, not the kernel OOM killer, normally decides MEMORY_LIMIT.
	memoryHeadroomMb = 64
)

// SecurityProfile is the host configuration applied to every container.
type SecurityProfile struct {
	NetworkMode     string
	MemoryBytes     int64
	MemorySwapBytes int64
	PidsLimit       int64
	CPUQuota        int64
	CPUPeriod       int64
	Privileged      bool
	PublishAllPorts bool
	ReadonlyRootfs  bool
	CapDrop         []string
	SecurityOpt     []string
	Tmpfs           map[string]string
	User            string
}

func NewProfile(policy limits.Policy, memoryLimitMb int) SecurityProfile {
	ceiling := int64(max(memoryLimitMb, policy.DefaultMemoryLimitMb)+memoryHeadroomMb) * 1024 * 1024
	return SecurityProfile{
		NetworkMode:     "none",
		MemoryBytes:     ceiling,
		MemorySwapBytes: ceiling,
		PidsLimit:       policy.PidsLimit,
		CPUQuota:        policy.CPUQuota,
		CPUPeriod:       policy.CPUPeriod,
		ReadonlyRootfs:  true,
		CapDrop:         []string{"ALL"},
		SecurityOpt:     []string{"no-new-privileges"},
		Tmpfs: map[string]string{
			ScratchDir: fmt.Sprintf("rw,exec,nosuid,size=%dm,mode=1777", policy.ScratchSizeMb),
		},
		User: "nobody",
	}
}

// Validate refuses profiles that would let a container reach the network,
// swap, fork without bound or run privileged.
func (p SecurityProfile) Validate() error {
	switch {
	case p.NetworkMode != "none":
		return fmt.Errorf("%w: network mode %q", ErrUnsafeProfile, p.NetworkMode)
	case p.MemoryBytes <= 0:
		return fmt.Errorf("%w: memory ceiling not set", ErrUnsafeProfile)
	case p.MemorySwapBytes != p.MemoryBytes:
		return fmt.Errorf("%w: swap ceiling %d differs from memory ceiling %d", ErrUnsafeProfile, p.MemorySwapBytes, p.MemoryBytes)
	case p.PidsLimit <= 0:
		return fmt.Errorf("%w: process ceiling not set", ErrUnsafeProfile)
	case p.Privileged:
		return fmt.Errorf("%w: privileged container", ErrUnsafeProfile)
	case p.PublishAllPorts:
		return fmt.Errorf("%w: published ports", ErrUnsafeProfile)
	}
	return nil
}
