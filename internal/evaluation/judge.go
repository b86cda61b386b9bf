package evaluation

import (
	"github.com/itstheanurag/codejudge/internal/sandbox"
	"github.com/itstheanurag/codejudge/internal/signature"
)

type mode int

const (
	modeSubmit mode = iota
	modeDryRun
)

// judge folds sandbox results into a Result, one test case at a time.
type judge struct {
	mode        mode
	ret         signature.DataType
	timeLimitMs int
	memLimitMb  int
}

// verdict is the per-case outcome, with this problem's limits applied on
// top of the sandbox status.
func (j judge) verdict(tc TestCase, res *sandbox.Result) Status {
	switch {
	case res.Status == sandbox.StatusTimeLimit || res.Metrics.RuntimeMs > int64(j.timeLimitMs):
		return StatusTimeLimit
	case res.Status == sandbox.StatusMemoryLimit || res.Metrics.MemoryKb > int64(j.memLimitMb)*1024:
		return StatusMemoryLimit
	case res.Status == sandbox.StatusCompilationError:
		return StatusCompilationError
	case res.Status == sandbox.StatusRuntimeError:
		return StatusRuntimeError
	case Matches(res.Stdout, tc.ExpectedOutput, j.ret):
		return StatusAccepted
	default:
		return StatusWrongAnswer
	}
}

// stops reports whether no further case should run after verdict v.
func (j judge) stops(v Status) bool {
	if j.mode == modeDryRun {
		return v == StatusCompilationError
	}
	return v == StatusCompilationError || v == StatusRuntimeError
}

// fold builds the aggregate over results, which is parallel to cases. A
// nil result means the case never ran.
func (j judge) fold(cases []TestCase, results []*sandbox.Result) *Result {
	out := &Result{Status: StatusAccepted, Total: len(cases)}
	for i, res := range results {
		if res == nil {
			break
		}
		tc := cases[i]
		v := j.verdict(tc, res)

		tr := TestResult{
			TestCaseID: tc.ID,
			Custom:     tc.Custom,
			Passed:     v == StatusAccepted,
			Verdict:    v,
			Input:      tc.Input,
			Expected:   tc.ExpectedOutput,
			Actual:     res.Stdout,
			Error:      res.Stderr,
			RuntimeMs:  res.Metrics.RuntimeMs,
			MemoryKb:   res.Metrics.MemoryKb,
		}
		switch v {
		case StatusTimeLimit:
			tr.Error = "Time limit exceeded"
		case StatusMemoryLimit:
			tr.Error = "Memory limit exceeded"
		}
		out.Tests = append(out.Tests, tr)

		if tr.Passed {
			out.Passed++
		}
		out.MaxRuntimeMs = max(out.MaxRuntimeMs, tr.RuntimeMs)
		out.MaxMemoryKb = max(out.MaxMemoryKb, tr.MemoryKb)
		out.Status = j.next(out.Status, v)

		if j.stops(v) {
			break
		}
	}
	return out
}

// next is the submission state transition on one more verdict.
func (j judge) next(current, v Status) Status {
	if v == StatusAccepted {
		return current
	}
	if j.mode == modeDryRun || v == StatusWrongAnswer {
		// First failure wins.
		if current == StatusAccepted {
			return v
		}
		return current
	}
	return v
}
