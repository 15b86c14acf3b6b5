package spec

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cuemby/contained/pkg/types"
	"golang.org/x/sys/unix"
)

const (
	// DefaultImage is an image with no filesystem content of its own; the
	// program and its libraries come from the host binds.
	DefaultImage = "empty"

	// DefaultNetwork disables networking in the container
	DefaultNetwork = "none"

	// RunIDLabel tags every container with the id of the run that created it
	RunIDLabel = "io.contained.run-id"

	x11SocketDir = "/tmp/.X11-unix"
)

// SystemDirs are bound read-only when present on the host, so that a host
// program finds its loader and shared libraries inside the container
var SystemDirs = []string{"/bin", "/etc", "/lib", "/lib32", "/lib64", "/libx32", "/sbin", "/usr"}

// ErrNoProgram is returned when neither a program nor an image is given
var ErrNoProgram = errors.New("no program to run")

// Builder collects the inputs of one run and produces its ContainerSpec
type Builder struct {
	image       string
	program     string
	args        []string
	entrypoint  string
	network     string
	mountCwd    bool
	cwdWritable bool
	mounts      []mountRequest
	env         []string
	workdir     string
	x11         bool
	tty         *types.Tty
	labels      map[string]string

	// Host lookups, replaced in tests
	getwd     func() (string, error)
	getenv    func(string) string
	lookPath  func(string) (string, error)
	user      func() string
	available func(string) bool
}

type mountRequest struct {
	path     string
	readonly bool
}

// NewBuilder creates a builder for the default image and network
func NewBuilder() *Builder {
	return &Builder{
		image:     DefaultImage,
		network:   DefaultNetwork,
		getwd:     os.Getwd,
		getenv:    os.Getenv,
		lookPath:  exec.LookPath,
		user:      effectiveUser,
		available: exists,
	}
}

// WithImage sets the image to run
func (b *Builder) WithImage(image string) *Builder {
	b.image = image
	return b
}

// WithProgram sets the host program and its arguments. The program is looked
// up in PATH when it contains no slash.
func (b *Builder) WithProgram(program string, args ...string) *Builder {
	b.program = program
	b.args = args
	return b
}

// WithArgs sets the arguments passed to the image's entrypoint
func (b *Builder) WithArgs(args ...string) *Builder {
	b.args = args
	return b
}

// WithEntrypoint overrides the image's entrypoint. The arguments are then
// passed separately as Cmd.
func (b *Builder) WithEntrypoint(entrypoint string) *Builder {
	b.entrypoint = entrypoint
	return b
}

// WithNetwork sets the engine network mode
func (b *Builder) WithNetwork(mode string) *Builder {
	b.network = mode
	return b
}

// WithCurrentDir binds the current directory at the same path
func (b *Builder) WithCurrentDir(writable bool) *Builder {
	b.mountCwd = true
	b.cwdWritable = b.cwdWritable || writable
	return b
}

// WithMount adds a host path bound at the same path
func (b *Builder) WithMount(path string, readonly bool) *Builder {
	b.mounts = append(b.mounts, mountRequest{path: path, readonly: readonly})
	return b
}

// WithMounts adds several host paths with the same access
func (b *Builder) WithMounts(paths []string, readonly bool) *Builder {
	for _, p := range paths {
		b.WithMount(p, readonly)
	}
	return b
}

// WithEnv adds NAME=value entries. A bare NAME takes the host's value and is
// dropped when the host does not have it.
func (b *Builder) WithEnv(env ...string) *Builder {
	b.env = append(b.env, env...)
	return b
}

// WithWorkDir overrides the working directory
func (b *Builder) WithWorkDir(dir string) *Builder {
	b.workdir = dir
	return b
}

// WithX11 forwards DISPLAY and the X11 socket directory
func (b *Builder) WithX11(enabled bool) *Builder {
	b.x11 = enabled
	return b
}

// WithTty requests a pseudo-terminal of the given size; nil means none
func (b *Builder) WithTty(tty *types.Tty) *Builder {
	b.tty = tty
	return b
}

// WithLabel sets a container label
func (b *Builder) WithLabel(key, value string) *Builder {
	if b.labels == nil {
		b.labels = make(map[string]string)
	}
	b.labels[key] = value
	return b
}

// WithRunID labels the container with the run id
func (b *Builder) WithRunID(id string) *Builder {
	return b.WithLabel(RunIDLabel, id)
}

// Build resolves every host path and returns the container spec. Paths that must exist
// are canonicalized; a missing one fails the build.
func (b *Builder) Build() (*types.ContainerSpec, error) {
	if b.program == "" && b.image == "" {
		return nil, ErrNoProgram
	}

	cwd, err := b.getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	cwd, err = canonicalize(cwd)
	if err != nil {
		return nil, err
	}

	spec := &types.ContainerSpec{
		Image:        b.image,
		User:         b.user(),
		NetworkMode:  b.network,
		ReadonlyRoot: true,
		Tmpfs:        append([]types.TmpfsMount(nil), types.DefaultTmpfs...),
		Tty:          b.tty,
		Labels:       b.labels,
	}

	if b.program != "" {
		program, err := b.resolveProgram(b.program)
		if err != nil {
			return nil, err
		}
		spec.Entrypoint = append([]string{program}, b.args...)

		if dir := filepath.Dir(program); dir != cwd || !b.mountCwd {
			addBind(spec, types.NewBind(dir, true))
		}
		for _, dir := range SystemDirs {
			if b.available(dir) {
				addBind(spec, types.NewBind(dir, true))
			}
		}
	} else {
		if b.entrypoint != "" {
			spec.Entrypoint = []string{b.entrypoint}
		}
		spec.Cmd = b.args
	}

	if b.mountCwd {
		addBind(spec, types.NewBind(cwd, !b.cwdWritable))
	}

	for _, m := range b.mounts {
		path, err := canonicalize(m.path)
		if err != nil {
			return nil, err
		}
		addBind(spec, types.NewBind(path, m.readonly))
	}

	for _, e := range b.env {
		if strings.Contains(e, "=") {
			spec.Env = append(spec.Env, e)
		} else if v := b.getenv(e); v != "" {
			spec.Env = append(spec.Env, e+"="+v)
		}
	}

	if b.x11 {
		if display := b.getenv("DISPLAY"); display != "" {
			spec.Env = append(spec.Env, "DISPLAY="+display)
		}
		if b.available(x11SocketDir) {
			addBind(spec, types.Bind{Source: x11SocketDir, Destination: x11SocketDir})
		}
	}

	switch {
	case b.workdir != "":
		dir := b.workdir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cwd, dir)
		}
		spec.WorkingDir, err = canonicalize(dir)
		if err != nil {
			return nil, err
		}
	case b.mountCwd:
		spec.WorkingDir = cwd
	default:
		spec.WorkingDir = "/"
	}

	return spec, nil
}

// addBind appends bind, replacing an earlier bind of the same destination
func addBind(spec *types.ContainerSpec, bind types.Bind) {
	for i, existing := range spec.Binds {
		if existing.Destination == bind.Destination {
			spec.Binds[i] = bind
			return
		}
	}
	spec.Binds = append(spec.Binds, bind)
}

func (b *Builder) resolveProgram(program string) (string, error) {
	if !strings.Contains(program, "/") {
		found, err := b.lookPath(program)
		if err != nil {
			return "", fmt.Errorf("failed to find program %s: %w", program, err)
		}
		program = found
	}
	return canonicalize(program)
}

// canonicalize returns the absolute, symlink-free form of an existing path
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return resolved, nil
}

func exists(path string) bool {
	return unix.Access(path, unix.F_OK) == nil
}

func effectiveUser() string {
	return strconv.Itoa(unix.Geteuid()) + ":" + strconv.Itoa(unix.Getegid())
}
