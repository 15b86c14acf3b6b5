package runner

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/cuemby/contained/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullSpec() *types.ContainerSpec {
	return &types.ContainerSpec{
		Image:      "empty",
		Entrypoint: []string{"/usr/bin/ls", "-l"},
		User:       "1000:1000",
		Env:        []string{"FOO=1", "EMPTY="},
		Binds: []types.Bind{
			types.NewBind("/opt", true),
			types.NewBind("/data", false),
		},
		Tmpfs:        []types.TmpfsMount{{Destination: "/tmp", Options: "rw,exec"}},
		NetworkMode:  "none",
		ReadonlyRoot: true,
		WorkingDir:   "/data",
		Labels:       map[string]string{"b": "2", "a": "1"},
	}
}

// TestRunArgs tests the podman/docker run argv for a full spec
func TestRunArgs(t *testing.T) {
	args := RunArgs(fullSpec())

	expected := []string{
		"run", "--rm", "-i",
		"--network", "none",
		"--user", "1000:1000",
		"--read-only",
		"--tmpfs", "/tmp:rw,exec",
		"-v", "/opt:/opt:ro",
		"-v", "/data:/data:rw",
		"-e", "FOO=1",
		"-e", "EMPTY=",
		"-w", "/data",
		"--label", "a=1",
		"--label", "b=2",
		"--entrypoint", "/usr/bin/ls",
		"empty",
		"-l",
	}
	assert.Equal(t, expected, args)
}

// TestRunArgsImageDefaults tests entrypoint and cmd placement for image runs
func TestRunArgsImageDefaults(t *testing.T) {
	tests := []struct {
		name string
		spec *types.ContainerSpec
		tail []string
	}{
		{
			name: "image entrypoint with args",
			spec: &types.ContainerSpec{Image: "alpine", Cmd: []string{"echo", "hi"}},
			tail: []string{"alpine", "echo", "hi"},
		},
		{
			name: "entrypoint override with cmd",
			spec: &types.ContainerSpec{Image: "alpine", Entrypoint: []string{"/bin/sh"}, Cmd: []string{"-c", "true"}},
			tail: []string{"--entrypoint", "/bin/sh", "alpine", "-c", "true"},
		},
		{
			name: "tty",
			spec: &types.ContainerSpec{Image: "alpine", Tty: &types.Tty{Height: 1, Width: 1}},
			tail: []string{"-t", "alpine"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := RunArgs(tt.spec)
			assert.Equal(t, tt.tail, args[len(args)-len(tt.tail):])
		})
	}
}

// TestBwrapArgs tests the bubblewrap argv for a full spec
func TestBwrapArgs(t *testing.T) {
	args, err := BwrapArgs(fullSpec())
	require.NoError(t, err)

	expected := []string{
		"--unshare-all", "--die-with-parent",
		"--ro-bind", "/opt", "/opt",
		"--bind", "/data", "/data",
		"--proc", "/proc", "--dev", "/dev",
		"--tmpfs", "/tmp",
		"--clearenv", "--setenv", "PATH", defaultPath,
		"--setenv", "FOO", "1",
		"--setenv", "EMPTY", "",
		"--chdir", "/data",
		"--", "/usr/bin/ls", "-l",
	}
	assert.Equal(t, expected, args)
}

// TestBwrapArgsNetwork tests host network sharing in bubblewrap
func TestBwrapArgsNetwork(t *testing.T) {
	cs := fullSpec()
	cs.NetworkMode = "host"
	args, err := BwrapArgs(cs)
	require.NoError(t, err)
	assert.Contains(t, args, "--share-net")

	cs.NetworkMode = "none"
	args, err = BwrapArgs(cs)
	require.NoError(t, err)
	assert.NotContains(t, args, "--share-net")
}

// TestBwrapArgsNoProgram tests that bubblewrap needs an entrypoint
func TestBwrapArgsNoProgram(t *testing.T) {
	_, err := BwrapArgs(&types.ContainerSpec{Image: "alpine"})
	assert.Error(t, err)
}

// TestExecRunnerExitCode tests that a child exit code becomes the run result
func TestExecRunnerExitCode(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	var stdout bytes.Buffer
	r := &execRunner{name: "sh", path: sh, io: IO{Stdin: strings.NewReader("from stdin\n"), Stdout: &stdout}}

	result, err := r.run(context.Background(), []string{"-c", "cat; exit 3"})
	require.NoError(t, err)
	assert.Equal(t, uint8(3), result.ExitCode)
	assert.Equal(t, "from stdin\n", stdout.String())

	result, err = r.run(context.Background(), []string{"-c", "true"})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), result.ExitCode)
}

// TestExecRunnerMissingBinary tests a runner whose binary is gone
func TestExecRunnerMissingBinary(t *testing.T) {
	r := &execRunner{name: "missing", path: "/does/not/exist"}
	_, err := r.run(context.Background(), nil)
	assert.Error(t, err)
}

// TestNewCommandRunnerNotFound tests lookup of a missing container CLI
func TestNewCommandRunnerNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := NewCommandRunner("podman", StdIO())
	assert.Error(t, err)
}
