package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
)

// maxStreamBytes caps captured stdout and stderr per exec.
const maxStreamBytes = 4 << 20

type DockerRuntime struct {
	cli    *client.Client
	logger *zerolog.Logger
}

// NewDockerRuntime opens a client from the standard DOCKER_* environment.
// host, when set, overrides DOCKER_HOST.
func NewDockerRuntime(host string, logger *zerolog.Logger) (*DockerRuntime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &DockerRuntime{cli: cli, logger: logger}, nil
}

func (d *DockerRuntime) Create(ctx context.Context, spec ContainerSpec) (string, error) {
	p := spec.Profile
	pids := p.PidsLimit
	resp, err := d.cli.ContainerCreate(ctx, &container.Config{
		Image:           spec.Image,
		Cmd:             spec.Cmd,
		Tty:             false,
		NetworkDisabled: p.NetworkMode == "none",
		WorkingDir:      spec.WorkingDir,
		User:            p.User,
		Labels:          spec.Labels,
	}, &container.HostConfig{
		Resources: container.Resources{
			Memory:     p.MemoryBytes,
			MemorySwap: p.MemorySwapBytes,
			CPUQuota:   p.CPUQuota,
			CPUPeriod:  p.CPUPeriod,
			PidsLimit:  &pids,
		},
		NetworkMode:     container.NetworkMode(p.NetworkMode),
		Privileged:      p.Privileged,
		PublishAllPorts: p.PublishAllPorts,
		ReadonlyRootfs:  p.ReadonlyRootfs,
		SecurityOpt:     p.SecurityOpt,
		CapDrop:         p.CapDrop,
		Tmpfs:           p.Tmpfs,
	}, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return resp.ID, nil
}

func (d *DockerRuntime) Start(ctx context.Context, id string) error {
	if err := d.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

// WriteFile streams content into `cat` running inside the container.
// CopyToContainer cannot write into tmpfs mounts.
func (d *DockerRuntime) WriteFile(ctx context.Context, id, filePath string, content []byte) error {
	execResp, err := d.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          []string{"sh", "-c", "cat > " + shellQuote(filePath)},
		WorkingDir:   path.Dir(filePath),
		AttachStdin:  true,
		AttachStderr: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create write exec: %w", err)
	}

	attachResp, err := d.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return fmt.Errorf("failed to attach write exec: %w", err)
	}

	if _, err := attachResp.Conn.Write(content); err != nil {
		attachResp.Close()
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	_ = attachResp.CloseWrite()
	_, _ = io.Copy(io.Discard, attachResp.Reader)
	attachResp.Close()

	exitCode, err := d.waitExec(ctx, execResp.ID)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("writing %s exited with code %d", filePath, exitCode)
	}

	d.logger.Debug().Str("container", id).Str("file", filePath).Int("bytes", len(content)).Msg("file written via exec")
	return nil
}

func (d *DockerRuntime) Exec(ctx context.Context, id string, spec ExecSpec) (*ExecResult, error) {
	execResp, err := d.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          spec.Cmd,
		Env:          spec.Env,
		WorkingDir:   spec.WorkingDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	startResp, err := d.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start exec: %w", err)
	}
	defer startResp.Close()

	stdout := &cappedBuffer{limit: maxStreamBytes}
	stderr := &cappedBuffer{limit: maxStreamBytes}
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(stdout, stderr, startResp.Reader)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("failed to read exec output: %w", err)
		}
	case <-ctx.Done():
		// Unblocks the copier; the process itself dies with the container.
		startResp.Close()
		return nil, fmt.Errorf("exec interrupted: %w", ctx.Err())
	}

	exitCode, err := d.waitExec(ctx, execResp.ID)
	if err != nil {
		return nil, err
	}

	return &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}

func (d *DockerRuntime) waitExec(ctx context.Context, execID string) (int, error) {
	for {
		inspect, err := d.cli.ContainerExecInspect(ctx, execID)
		if err != nil {
			return 0, fmt.Errorf("failed to inspect exec: %w", err)
		}
		if !inspect.Running {
			return inspect.ExitCode, nil
		}
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("exec interrupted: %w", ctx.Err())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type memoryStats struct {
	MemoryStats struct {
		Usage int64            `json:"usage"`
		Stats map[string]int64 `json:"stats"`
	} `json:"memory_stats"`
}

func (d *DockerRuntime) MemoryUsage(ctx context.Context, id string) (int64, error) {
	resp, err := d.cli.ContainerStatsOneShot(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to read container stats: %w", err)
	}
	defer resp.Body.Close()

	var s memoryStats
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return 0, fmt.Errorf("failed to decode container stats: %w", err)
	}

	usage := s.MemoryStats.Usage
	// Same cache accounting as `docker stats`: cgroup v2 reports
	// inactive_file, v1 reports total_inactive_file.
	if v, ok := s.MemoryStats.Stats["inactive_file"]; ok && v < usage {
		usage -= v
	} else if v, ok := s.MemoryStats.Stats["total_inactive_file"]; ok && v < usage {
		usage -= v
	}
	return usage, nil
}

func (d *DockerRuntime) Stop(ctx context.Context, id string, timeout time.Duration) error {
	secs := int(timeout.Seconds())
	if err := d.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

func (d *DockerRuntime) Remove(ctx context.Context, id string) error {
	if err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

func (d *DockerRuntime) EnsureImage(ctx context.Context, img string) error {
	_, _, err := d.cli.ImageInspectWithRaw(ctx, img)
	if err == nil {
		return nil // Image already exists
	}

	d.logger.Info().Str("image", img).Msg("pulling docker image")
	reader, err := d.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	_, _ = io.Copy(io.Discard, reader)

	d.logger.Info().Str("image", img).Msg("successfully pulled docker image")
	return nil
}

func (d *DockerRuntime) Close() error {
	return d.cli.Close()
}

// cappedBuffer keeps the first limit bytes and silently drops the rest.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.limit - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	return c.buf.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
