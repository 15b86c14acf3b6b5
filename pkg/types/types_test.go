package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBindString tests the host:dest[:opts] wire format
func TestBindString(t *testing.T) {
	tests := []struct {
		name     string
		bind     Bind
		expected string
	}{
		{
			name:     "no options",
			bind:     Bind{Source: "/opt", Destination: "/opt"},
			expected: "/opt:/opt",
		},
		{
			name:     "read-only",
			bind:     Bind{Source: "/opt", Destination: "/opt", Options: []BindOption{BindReadOnly}},
			expected: "/opt:/opt:ro",
		},
		{
			name:     "different destination",
			bind:     Bind{Source: "/home/u/src", Destination: "/src", Options: []BindOption{BindReadWrite}},
			expected: "/home/u/src:/src:rw",
		},
		{
			name:     "multiple options",
			bind:     Bind{Source: "/a", Destination: "/b", Options: []BindOption{BindReadOnly, "z"}},
			expected: "/a:/b:ro,z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.bind.String())
		})
	}
}

// TestBindStringRoundTrip tests that the formatted bind splits back into its parts
func TestBindStringRoundTrip(t *testing.T) {
	optionSets := [][]BindOption{
		nil,
		{},
		{BindReadOnly},
		{BindReadWrite},
		{BindReadOnly, BindReadWrite},
	}

	for _, opts := range optionSets {
		b := Bind{Source: "/host/path", Destination: "/container/path", Options: opts}
		parts := strings.Split(b.String(), ":")

		assert.Equal(t, "/host/path", parts[0])
		assert.Equal(t, "/container/path", parts[1])
		if len(opts) == 0 {
			assert.Len(t, parts, 2, "empty option set must not add a segment")
			continue
		}
		assert.Len(t, parts, 3)
		got := strings.Split(parts[2], ",")
		assert.Len(t, got, len(opts))
		for i, o := range opts {
			assert.Equal(t, string(o), got[i])
		}
	}
}

// TestNewBind tests bind construction and its string form
func TestNewBind(t *testing.T) {
	ro := NewBind("/usr", true)
	assert.Equal(t, "/usr:/usr:ro", ro.String())
	assert.True(t, ro.ReadOnly())

	rw := NewBind("/data", false)
	assert.Equal(t, "/data:/data:rw", rw.String())
	assert.False(t, rw.ReadOnly())
}

// TestContainerSpecInteractive tests tty detection on a spec
func TestContainerSpecInteractive(t *testing.T) {
	spec := &ContainerSpec{}
	assert.False(t, spec.Interactive())

	spec.Tty = &Tty{Height: 24, Width: 80}
	assert.True(t, spec.Interactive())
}
