package limiter

import (
	"context"
	"fmt"
	"sync"

	"github.com/itstheanurag/codejudge/internal/metrics"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// LaunchLimiter bounds how fast and how many containers may be alive at
// once. It satisfies sandbox.Launcher.
type LaunchLimiter struct {
	global      *rate.Limiter
	perLanguage sync.Map
	langRate    rate.Limit
	langBurst   int
	slots       *semaphore.Weighted
}

// NewLaunchLimiter allows globalRPS launches per second overall, perLangRPS
// per language, and at most maxConcurrent live containers.
func NewLaunchLimiter(globalRPS float64, perLangRPS float64, perLangBurst int, maxConcurrent int) *LaunchLimiter {
	return &LaunchLimiter{
		global:    rate.NewLimiter(rate.Limit(globalRPS), max(int(globalRPS)*2, 1)),
		langRate:  rate.Limit(perLangRPS),
		langBurst: max(perLangBurst, 1),
		slots:     semaphore.NewWeighted(int64(max(maxConcurrent, 1))),
	}
}

func (l *LaunchLimiter) languageLimiter(language string) *rate.Limiter {
	if lim, ok := l.perLanguage.Load(language); ok {
		return lim.(*rate.Limiter)
	}
	lim, _ := l.perLanguage.LoadOrStore(language, rate.NewLimiter(l.langRate, l.langBurst))
	return lim.(*rate.Limiter)
}

// Acquire blocks until a launch for language is allowed or ctx is done.
// release gives the concurrency slot back and must be called exactly once.
func (l *LaunchLimiter) Acquire(ctx context.Context, language string) (func(), error) {
	langLimiter := l.languageLimiter(language)
	if l.global.Tokens() < 1 || langLimiter.Tokens() < 1 {
		metrics.LaunchThrottled.Inc()
	}

	if err := l.global.Wait(ctx); err != nil {
		return nil, fmt.Errorf("global launch rate: %w", err)
	}
	if err := langLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s launch rate: %w", language, err)
	}
	if err := l.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("container slot: %w", err)
	}

	var once sync.Once
	return func() { once.Do(func() { l.slots.Release(1) }) }, nil
}
