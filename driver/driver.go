package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

var ErrEmptyCommand = errors.New("empty command")

// HookFailure is returned when a before-each command does not complete with
// status zero. Err is set when the command could not be run at all.
type HookFailure struct {
	Command    types.Command
	ExitStatus int
	Err        error
}

func (e *HookFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hook [%s] could not be run: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("hook [%s] failed with status %d", e.Command, e.ExitStatus)
}

func (e *HookFailure) Unwrap() error {
	return e.Err
}

// Config holds configuration for creating a new Driver
type Config struct {
	Dir          string // working directory of every spawned process
	ArtifactDir  string // directory holding the rendered artifact, relative to Dir unless absolute
	RenderedFile string // artifact file name inside ArtifactDir
	Log          log.Logger
}

// Driver runs hooks and target commands and writes rendered artifacts.
// Processes are run one at a time and waited for; no timeout is applied.
type Driver struct {
	dir          string
	artifactDir  string
	artifactPath string
	log          log.Logger
	cmdBuilder   func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// New creates a Driver. It does not touch the filesystem; see Prepare.
func New(cfg Config) (*Driver, error) {
	if cfg.RenderedFile == "" {
		return nil, errors.New("rendered file name is required")
	}
	if cfg.ArtifactDir == "" {
		return nil, errors.New("artifact directory is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	artifactDir := cfg.ArtifactDir
	if !filepath.IsAbs(artifactDir) {
		artifactDir = filepath.Join(cfg.Dir, artifactDir)
	}
	return &Driver{
		dir:          cfg.Dir,
		artifactDir:  artifactDir,
		artifactPath: filepath.Join(artifactDir, cfg.RenderedFile),
		log:          cfg.Log,
		cmdBuilder:   exec.CommandContext,
	}, nil
}

// ArtifactPath returns where rendered artifacts are written.
func (d *Driver) ArtifactPath() string {
	return d.artifactPath
}

// Prepare creates the artifact directory if it does not exist yet.
func (d *Driver) Prepare() error {
	if err := os.MkdirAll(d.artifactDir, 0755); err != nil {
		return fmt.Errorf("creating working directory %s: %w", d.artifactDir, err)
	}
	return nil
}

// WriteArtifact replaces the rendered artifact with content.
func (d *Driver) WriteArtifact(content string) error {
	if err := d.Prepare(); err != nil {
		return err
	}
	if err := os.WriteFile(d.artifactPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing rendered file %s: %w", d.artifactPath, err)
	}
	return nil
}

// Run executes c to completion and returns its exit status together with
// its combined stdout and stderr. A non-zero exit is not an error; failing to
// start the process is.
func (d *Driver) Run(ctx context.Context, c types.Command) (int, []byte, error) {
	cmd, err := d.command(ctx, c)
	if err != nil {
		return -1, nil, err
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	d.log.Debug("Running command", "command", c.String(), "dir", cmd.Dir)
	status, err := exitStatus(cmd.Run())
	return status, out.Bytes(), err
}

// RunHooks runs each hook in order. The first hook that cannot be run or
// exits non-zero stops the sequence and is returned as a *HookFailure.
func (d *Driver) RunHooks(ctx context.Context, hooks []types.Command) error {
	for _, hook := range hooks {
		status, output, err := d.Run(ctx, hook)
		if err != nil {
			return &HookFailure{Command: hook, ExitStatus: status, Err: err}
		}
		if status != 0 {
			d.log.Error("Hook failed", "command", hook.String(), "status", status, "output", string(output))
			return &HookFailure{Command: hook, ExitStatus: status}
		}
	}
	return nil
}

// RunTarget runs base with args appended and captures its exit status and
// the whole of its standard output. Standard error is discarded.
func (d *Driver) RunTarget(ctx context.Context, base types.Command, args []string) (*types.ExecutionResult, error) {
	argv := make(types.Command, 0, len(base)+len(args))
	argv = append(argv, base...)
	argv = append(argv, args...)

	cmd, err := d.command(ctx, argv)
	if err != nil {
		return nil, err
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	d.log.Debug("Running target", "command", argv.String(), "dir", cmd.Dir)
	status, err := exitStatus(cmd.Run())
	if err != nil {
		return nil, fmt.Errorf("running target [%s]: %w", argv, err)
	}
	return &types.ExecutionResult{
		ExitStatus: status,
		Stdout:     stdout.Bytes(),
	}, nil
}

func (d *Driver) command(ctx context.Context, c types.Command) (*exec.Cmd, error) {
	if len(c) == 0 || c[0] == "" {
		return nil, ErrEmptyCommand
	}
	cmd := d.cmdBuilder(ctx, c[0], c[1:]...)
	cmd.Dir = d.dir
	return cmd, nil
}

// exitStatus turns the error from exec.Cmd.Run into an exit status. A
// process killed by a signal reports the negated signal number, so a
// segmentation fault is -11. Only errors other than a non-zero exit are
// returned.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return -int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
