package types

import (
	"strings"
	"time"
)

// ContainerSpec describes one invocation of a program inside a container
type ContainerSpec struct {
	Image string

	// Entrypoint is the full program path followed by its arguments.
	// When empty, the image's own entrypoint is used.
	Entrypoint []string

	// Cmd is passed after Entrypoint. It is only set when the entrypoint
	// override and the arguments are given separately.
	Cmd []string

	User         string   // "uid:gid"
	Env          []string // NAME=value, insertion order preserved
	Binds        []Bind
	Tmpfs        []TmpfsMount
	NetworkMode  string
	ReadonlyRoot bool
	WorkingDir   string
	Tty          *Tty
	Labels       map[string]string
}

// Interactive reports whether a pseudo-terminal is requested
func (s *ContainerSpec) Interactive() bool {
	return s.Tty != nil
}

// BindOption is a mount option understood by the engine
type BindOption string

const (
	BindReadOnly  BindOption = "ro"
	BindReadWrite BindOption = "rw"
)

// Bind exposes a host path inside the container
type Bind struct {
	Source      string
	Destination string
	Options     []BindOption
}

// NewBind creates a bind mounted at the same path inside the container
func NewBind(path string, readonly bool) Bind {
	opt := BindReadWrite
	if readonly {
		opt = BindReadOnly
	}
	return Bind{Source: path, Destination: path, Options: []BindOption{opt}}
}

// ReadOnly reports whether the bind carries the read-only option
func (b Bind) ReadOnly() bool {
	for _, o := range b.Options {
		if o == BindReadOnly {
			return true
		}
	}
	return false
}

// String formats the bind as host:dest[:opt1,opt2]
func (b Bind) String() string {
	s := b.Source + ":" + b.Destination
	if len(b.Options) == 0 {
		return s
	}
	opts := make([]string, len(b.Options))
	for i, o := range b.Options {
		opts[i] = string(o)
	}
	return s + ":" + strings.Join(opts, ",")
}

// TmpfsMount is an in-memory filesystem mounted inside the container
type TmpfsMount struct {
	Destination string
	Options     string
}

// DefaultTmpfs are writable even with a read-only root filesystem
var DefaultTmpfs = []TmpfsMount{
	{Destination: "/tmp", Options: "rw,exec"},
	{Destination: "/var/tmp", Options: "rw,exec"},
	{Destination: "/run", Options: "rw,noexec"},
	{Destination: "/var/run", Options: "rw,noexec"},
}

// Tty is the size of the local terminal in character cells
type Tty struct {
	Height uint
	Width  uint
}

// ExitResult is the outcome of one container run
type ExitResult struct {
	ContainerID string
	ExitCode    uint8
}

// Stage names a step of the container lifecycle
type Stage string

const (
	StageCreate Stage = "creation"
	StageAttach Stage = "attach"
	StageStart  Stage = "start"
	StageWait   Stage = "wait"
	StageRemove Stage = "removal"
)

// Leftover is a container that was created but not yet confirmed removed
type Leftover struct {
	ContainerID string    `json:"container_id"`
	RunID       string    `json:"run_id"`
	Image       string    `json:"image"`
	Entrypoint  []string  `json:"entrypoint,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Stage is the last lifecycle step the run reached
	Stage Stage `json:"stage"`
}
