package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

func newTestDriver(t *testing.T) (*Driver, string) {
	t.Helper()
	dir := t.TempDir()
	d, err := New(Config{
		Dir:          dir,
		ArtifactDir:  ".asmtest",
		RenderedFile: "test.asm",
		Log:          log.NewLogger(log.DiscardHandler()),
	})
	require.NoError(t, err)
	return d, dir
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{ArtifactDir: ".asmtest"})
	require.Error(t, err)

	_, err = New(Config{RenderedFile: "test.asm"})
	require.Error(t, err)
}

func TestWriteArtifact(t *testing.T) {
	d, dir := newTestDriver(t)
	assert.Equal(t, filepath.Join(dir, ".asmtest", "test.asm"), d.ArtifactPath())

	require.NoError(t, d.WriteArtifact("mov eax, 5\nret"))
	got, err := os.ReadFile(d.ArtifactPath())
	require.NoError(t, err)
	assert.Equal(t, "mov eax, 5\nret", string(got))

	// Each case overwrites the previous artifact.
	require.NoError(t, d.WriteArtifact("ret"))
	got, err = os.ReadFile(d.ArtifactPath())
	require.NoError(t, err)
	assert.Equal(t, "ret", string(got))
}

func TestRunTargetCapturesStatusAndStdout(t *testing.T) {
	d, _ := newTestDriver(t)

	res, err := d.RunTarget(context.Background(),
		types.Command{"sh", "-c", "printf 'hello\\n'; echo noise >&2; exit 5"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, res.ExitStatus)
	assert.Equal(t, "hello\n", string(res.Stdout))
}

func TestRunTargetAppendsArgs(t *testing.T) {
	d, _ := newTestDriver(t)

	res, err := d.RunTarget(context.Background(),
		types.Command{"sh", "-c", `echo "$@"`, "sh", "--fixed"}, []string{"-a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, "--fixed -a b\n", string(res.Stdout))
}

func TestRunTargetKilledBySignal(t *testing.T) {
	d, _ := newTestDriver(t)

	res, err := d.RunTarget(context.Background(),
		types.Command{"sh", "-c", "printf partial; kill -SEGV $$"}, nil)
	require.NoError(t, err)
	assert.Equal(t, -11, res.ExitStatus)
	assert.Equal(t, "partial", string(res.Stdout))

	res, err = d.RunTarget(context.Background(), types.Command{"sh", "-c", "kill -TERM $$"}, nil)
	require.NoError(t, err)
	assert.Equal(t, -15, res.ExitStatus)
}

func TestRunTargetReadsArtifactFromWorkingDir(t *testing.T) {
	d, dir := newTestDriver(t)
	require.NoError(t, d.Prepare())

	script := filepath.Join(dir, ".asmtest", "test.a")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncat .asmtest/test.asm\n"), 0755))
	require.NoError(t, d.WriteArtifact("rendered body"))

	res, err := d.RunTarget(context.Background(), types.Command{".asmtest/test.a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "rendered body", string(res.Stdout))
}

func TestRunTargetNotRunnable(t *testing.T) {
	d, _ := newTestDriver(t)

	_, err := d.RunTarget(context.Background(), types.Command{"./does-not-exist"}, nil)
	require.Error(t, err)

	_, err = d.RunTarget(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrEmptyCommand)
}

func TestRunHooksStopsAtFirstFailure(t *testing.T) {
	d, dir := newTestDriver(t)

	err := d.RunHooks(context.Background(), []types.Command{
		{"sh", "-c", "touch one"},
		{"sh", "-c", "echo building; exit 2"},
		{"sh", "-c", "touch three"},
	})
	require.Error(t, err)

	var hookErr *HookFailure
	require.True(t, errors.As(err, &hookErr))
	assert.Equal(t, 2, hookErr.ExitStatus)
	assert.Equal(t, types.Command{"sh", "-c", "echo building; exit 2"}, hookErr.Command)
	assert.Contains(t, hookErr.Error(), "echo building; exit 2")

	assert.FileExists(t, filepath.Join(dir, "one"))
	assert.NoFileExists(t, filepath.Join(dir, "three"))
}

func TestRunHooksAllSucceed(t *testing.T) {
	d, dir := newTestDriver(t)

	require.NoError(t, d.RunHooks(context.Background(), []types.Command{
		{"sh", "-c", "touch a"},
		{"sh", "-c", "touch b"},
	}))
	assert.FileExists(t, filepath.Join(dir, "a"))
	assert.FileExists(t, filepath.Join(dir, "b"))

	require.NoError(t, d.RunHooks(context.Background(), nil))
}

func TestRunHooksCommandNotFound(t *testing.T) {
	d, _ := newTestDriver(t)

	err := d.RunHooks(context.Background(), []types.Command{{"asmtest-no-such-binary-xyz"}})
	var hookErr *HookFailure
	require.True(t, errors.As(err, &hookErr))
	require.Error(t, hookErr.Err)
	assert.Contains(t, hookErr.Error(), "could not be run")
}

func TestRunHooksKilledBySignal(t *testing.T) {
	d, _ := newTestDriver(t)

	err := d.RunHooks(context.Background(), []types.Command{{"sh", "-c", "kill -ABRT $$"}})
	var hookErr *HookFailure
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, -6, hookErr.ExitStatus)
	assert.NoError(t, hookErr.Err)
}

func TestRunReturnsCombinedOutput(t *testing.T) {
	d, _ := newTestDriver(t)

	status, out, err := d.Run(context.Background(), types.Command{"sh", "-c", "echo out; echo err >&2; exit 3"})
	require.NoError(t, err)
	assert.Equal(t, 3, status)
	assert.Contains(t, string(out), "out")
	assert.Contains(t, string(out), "err")
}
