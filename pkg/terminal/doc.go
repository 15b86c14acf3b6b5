// Package terminal scopes raw terminal mode around an interactive container
// run and reports whether and how large the local terminal is.
package terminal
