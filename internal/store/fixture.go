package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/itstheanurag/codejudge/internal/evaluation"
	"github.com/pelletier/go-toml/v2"
)

// Fixture is a problem with its test cases as written in a TOML file:
//
//	id = 1
//	title = "Two Sum"
//	time_limit_ms = 2000
//
//	[starter_code]
//	python = "def twoSum(self, nums: List[int], target: int) -> List[int]:"
//
//	[[test_cases]]
//	input = "[2,7,11,15]\n9"
//	expected_output = "[0,1]"
//	sample = true
type Fixture struct {
	ID            int64             `toml:"id"`
	Title         string            `toml:"title"`
	TimeLimitMs   int               `toml:"time_limit_ms"`
	MemoryLimitMb int               `toml:"memory_limit_mb"`
	Tags          []string          `toml:"tags"`
	StarterCode   map[string]string `toml:"starter_code"`
	TestCases     []FixtureCase     `toml:"test_cases"`
}

type FixtureCase struct {
	Input          string `toml:"input"`
	ExpectedOutput string `toml:"expected_output"`
	Sample         bool   `toml:"sample"`
}

var ErrBadFixture = errors.New("invalid problem fixture")

// LoadFixture reads and checks a fixture file. Unknown keys are rejected.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadFixture, err)
	}
	if fx.ID == 0 {
		fx.ID = 1
	}
	if fx.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrBadFixture)
	}
	if len(fx.TestCases) == 0 {
		return nil, fmt.Errorf("%w: %q has no test cases", ErrBadFixture, fx.Title)
	}
	return &fx, nil
}

func (fx *Fixture) Problem() evaluation.Problem {
	return evaluation.Problem{
		ID:            fx.ID,
		Title:         fx.Title,
		TimeLimitMs:   fx.TimeLimitMs,
		MemoryLimitMb: fx.MemoryLimitMb,
		StarterCode:   fx.StarterCode,
		Tags:          fx.Tags,
	}
}

// Load adds the fixture's problem and cases to m.
func (m *Memory) Load(fx *Fixture) {
	m.AddProblem(fx.Problem())
	for _, c := range fx.TestCases {
		m.AddTestCase(fx.ID, evaluation.TestCase{
			Input:          c.Input,
			ExpectedOutput: c.ExpectedOutput,
			Sample:         c.Sample,
		})
	}
}
