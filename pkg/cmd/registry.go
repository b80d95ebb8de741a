// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/nodebase/pkg/registry"
)

// NewRegistry registers the built-in nodes. HTTP request nodes share one
// client bounded by httpTimeout.
func NewRegistry(log *slog.Logger, httpTimeout time.Duration) *registry.Registry {
	reg := registry.NewRegistry(log)
	reg.RegisterDefaultNodes(&http.Client{Timeout: httpTimeout})

	return reg
}
