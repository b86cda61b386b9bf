package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

var (
	HostCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codejudge_host_cpu_percent",
			Help: "Host CPU utilisation sampled by the judge",
		},
	)

	HostMemoryPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codejudge_host_memory_used_percent",
			Help: "Host memory in use",
		},
	)

	HostLoad1 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codejudge_host_load1",
			Help: "Host one minute load average",
		},
	)
)

// HostSampler periodically copies host utilisation into the gauges above.
type HostSampler struct {
	interval time.Duration
	logger   *zerolog.Logger
}

func NewHostSampler(interval time.Duration, logger *zerolog.Logger) *HostSampler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HostSampler{interval: interval, logger: logger}
}

func (h *HostSampler) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		h.Sample(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Sample reads host stats once. Failures are logged at debug level and the
// previous gauge value is kept.
func (h *HostSampler) Sample(ctx context.Context) {
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		HostCPUPercent.Set(pct[0])
	} else if err != nil {
		h.logger.Debug().Err(err).Msg("failed to sample host cpu")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		HostMemoryPercent.Set(vm.UsedPercent)
	} else {
		h.logger.Debug().Err(err).Msg("failed to sample host memory")
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		HostLoad1.Set(avg.Load1)
	} else {
		h.logger.Debug().Err(err).Msg("failed to sample host load")
	}
}
