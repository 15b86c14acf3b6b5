package engine

import (
	"github.com/cuemby/contained/pkg/types"
)

// CreateRequest is the body of POST /containers/create
type CreateRequest struct {
	Image        string
	Entrypoint   []string          `json:",omitempty"`
	Cmd          []string          `json:",omitempty"`
	User         string            `json:",omitempty"`
	Env          []string          `json:",omitempty"`
	AttachStdin  bool
	AttachStdout bool
	AttachStderr bool
	OpenStdin    bool
	StdinOnce    bool
	Tty          bool
	WorkingDir   string            `json:",omitempty"`
	Labels       map[string]string `json:",omitempty"`
	HostConfig   HostConfig
}

// HostConfig is the host-dependent part of a create request
type HostConfig struct {
	NetworkMode    string            `json:",omitempty"`
	Binds          []string          `json:",omitempty"`
	ReadonlyRootfs bool
	Tmpfs          map[string]string `json:",omitempty"`
	ConsoleSize    []uint            `json:",omitempty"`
}

type createResponse struct {
	ID       string   `json:"Id"`
	Warnings []string `json:"Warnings"`
}

type waitResponse struct {
	StatusCode *int64 `json:"StatusCode"`
	Error      *struct {
		Message string `json:"Message"`
	} `json:"Error"`
}

// NewCreateRequest maps a container spec onto the engine's create body
func NewCreateRequest(spec *types.ContainerSpec) *CreateRequest {
	req := &CreateRequest{
		Image:        spec.Image,
		Entrypoint:   spec.Entrypoint,
		Cmd:          spec.Cmd,
		User:         spec.User,
		Env:          spec.Env,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		OpenStdin:    true,
		StdinOnce:    true,
		Tty:          spec.Interactive(),
		WorkingDir:   spec.WorkingDir,
		Labels:       spec.Labels,
		HostConfig: HostConfig{
			NetworkMode:    spec.NetworkMode,
			ReadonlyRootfs: spec.ReadonlyRoot,
		},
	}

	for _, b := range spec.Binds {
		req.HostConfig.Binds = append(req.HostConfig.Binds, b.String())
	}

	if len(spec.Tmpfs) > 0 {
		req.HostConfig.Tmpfs = make(map[string]string, len(spec.Tmpfs))
		for _, t := range spec.Tmpfs {
			req.HostConfig.Tmpfs[t.Destination] = t.Options
		}
	}

	if spec.Tty != nil {
		req.HostConfig.ConsoleSize = []uint{spec.Tty.Height, spec.Tty.Width}
	}

	return req
}
