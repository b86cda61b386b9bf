package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/itstheanurag/codejudge/internal/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JUDGE_CONFIG_FILE", "")
	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", conf.Server.Port)
	assert.Equal(t, 5, conf.Worker.Count)
	assert.Equal(t, "memory", conf.Queue.Transport)
	assert.Equal(t, "localcode-python:latest", conf.Images()["python"])
	assert.Equal(t, limits.Default(), conf.Limits)
	assert.False(t, conf.Db.Enabled)
	assert.Equal(t, "info", conf.Log.Level)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "judge.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[Worker]
Count = 3
Parallelism = 2

[Limits]
DefaultTimeLimitMs = 1500

[Docker]
PythonImage = "judge/python:3.12"
`), 0o644))

	t.Setenv("JUDGE_WORKER_COUNT", "8")
	t.Setenv("JUDGE_QUEUE_TRANSPORT", "amqp")

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, conf.Worker.Count, "environment wins over file")
	assert.Equal(t, 2, conf.Worker.Parallelism)
	assert.Equal(t, 1500, conf.Limits.DefaultTimeLimitMs)
	assert.Equal(t, 256, conf.Limits.DefaultMemoryLimitMb)
	assert.Equal(t, "judge/python:3.12", conf.Docker.PythonImage)
	assert.Equal(t, "amqp", conf.Queue.Transport)
}

func TestValidate(t *testing.T) {
	t.Setenv("JUDGE_CONFIG_FILE", "")
	base, err := Load("")
	require.NoError(t, err)

	tests := map[string]func(c *Config){
		"no workers":      func(c *Config) { c.Worker.Count = 0 },
		"bad transport":   func(c *Config) { c.Queue.Transport = "kafka" },
		"no queue":        func(c *Config) { c.Queue.Capacity = 0 },
		"no image":        func(c *Config) { c.Docker.JavaImage = "" },
		"bad level":       func(c *Config) { c.Log.Level = "loud" },
		"bad limits":      func(c *Config) { c.Limits.PidsLimit = 0 },
		"no launch slots": func(c *Config) { c.Launch.MaxConcurrent = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := *base
			mutate(&c)
			require.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}
