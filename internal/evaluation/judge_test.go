package evaluation

import (
	"testing"

	"github.com/itstheanurag/codejudge/internal/sandbox"
	"github.com/itstheanurag/codejudge/internal/signature"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"[0,1]\n", "[0,1]"},
		{"  a  \n b\n\n", "a\nb"},
		{"a\r\nb\r\n", "a\nb"},
		{"\n\nx", "x"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "%q", tt.in)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		expected string
		ret      signature.DataType
		want     bool
	}{
		{"exact", "[0,1]\n", "[0,1]", signature.ArrayInt, true},
		{"authored spacing", "[0,1]\n", "[0, 1]", signature.ArrayInt, true},
		{"float rendering", "2\n", "2.0", signature.Double, true},
		{"quoted strings", `["a","b"]`, `[ "a" , "b" ]`, signature.ListString, true},
		{"different values", "[1,0]", "[0,1]", signature.ArrayInt, false},
		{"no type", "[0,1]", "[0, 1]", signature.Invalid, false},
		{"unparseable", "oops", "[0,1]", signature.ArrayInt, false},
		{"multi-line not canonicalized", "1\n2", "1\n 2.0", signature.Double, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.actual, tt.expected, tt.ret))
		})
	}
}

func ok(stdout string) *sandbox.Result {
	return &sandbox.Result{Status: sandbox.StatusSuccess, Stdout: stdout, Metrics: sandbox.Metrics{RuntimeMs: 10, MemoryKb: 1000}}
}

func failed(status sandbox.Status) *sandbox.Result {
	return &sandbox.Result{Status: status, Stderr: "boom", ExitCode: 1}
}

func TestFoldSubmit(t *testing.T) {
	cases := []TestCase{
		{ID: 1, ExpectedOutput: "1"},
		{ID: 2, ExpectedOutput: "2"},
		{ID: 3, ExpectedOutput: "3"},
	}
	j := judge{mode: modeSubmit, ret: signature.Int, timeLimitMs: 1000, memLimitMb: 256}

	tests := []struct {
		name    string
		results []*sandbox.Result
		status  Status
		passed  int
		judged  int
	}{
		{"all pass", []*sandbox.Result{ok("1"), ok("2"), ok("3")}, StatusAccepted, 3, 3},
		{"first wrong answer sticks", []*sandbox.Result{ok("1"), ok("0"), ok("3")}, StatusWrongAnswer, 2, 3},
		{"compile error stops", []*sandbox.Result{failed(sandbox.StatusCompilationError), ok("2"), ok("3")}, StatusCompilationError, 0, 1},
		{"runtime error after wrong answer", []*sandbox.Result{ok("0"), failed(sandbox.StatusRuntimeError), ok("3")}, StatusRuntimeError, 0, 2},
		{"time limit overrides wrong answer", []*sandbox.Result{ok("0"), failed(sandbox.StatusTimeLimit), ok("3")}, StatusTimeLimit, 1, 3},
		{"memory limit", []*sandbox.Result{ok("1"), failed(sandbox.StatusMemoryLimit), ok("3")}, StatusMemoryLimit, 2, 3},
		{"not run", []*sandbox.Result{ok("1"), nil, nil}, StatusAccepted, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := j.fold(cases, tt.results)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.passed, res.Passed)
			assert.Len(t, res.Tests, tt.judged)
			assert.Equal(t, 3, res.Total)
			assert.LessOrEqual(t, res.Passed, res.Total)
		})
	}
}

func TestFoldAppliesProblemLimits(t *testing.T) {
	j := judge{mode: modeSubmit, ret: signature.Int, timeLimitMs: 100, memLimitMb: 1}
	cases := []TestCase{{ID: 1, ExpectedOutput: "1"}, {ID: 2, ExpectedOutput: "1"}}
	slow := ok("1")
	slow.Metrics.RuntimeMs = 150
	big := ok("1")
	big.Metrics.MemoryKb = 2048

	res := j.fold(cases, []*sandbox.Result{slow, big})
	assert.Equal(t, StatusMemoryLimit, res.Status)
	assert.Equal(t, StatusTimeLimit, res.Tests[0].Verdict)
	assert.Equal(t, "Time limit exceeded", res.Tests[0].Error)
	assert.Equal(t, "Memory limit exceeded", res.Tests[1].Error)
	assert.Equal(t, int64(150), res.MaxRuntimeMs)
	assert.Equal(t, int64(2048), res.MaxMemoryKb)
	assert.Zero(t, res.Passed)
}

func TestFoldDryRun(t *testing.T) {
	j := judge{mode: modeDryRun, ret: signature.Int, timeLimitMs: 1000, memLimitMb: 256}
	cases := []TestCase{{ID: 1, ExpectedOutput: "1"}, {ID: 2, ExpectedOutput: "2"}, {ID: 3, ExpectedOutput: "3"}}

	res := j.fold(cases, []*sandbox.Result{ok("1"), failed(sandbox.StatusTimeLimit), failed(sandbox.StatusRuntimeError)})
	assert.Equal(t, StatusTimeLimit, res.Status, "first failure wins")
	assert.Len(t, res.Tests, 3, "runtime errors do not stop a dry run")

	res = j.fold(cases, []*sandbox.Result{failed(sandbox.StatusCompilationError), ok("2"), ok("3")})
	assert.Equal(t, StatusCompilationError, res.Status)
	assert.Len(t, res.Tests, 1)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusAccepted.Terminal())
	assert.True(t, StatusSystemError.Terminal())
}
