// Package provider defines the boundary to a positioning source and a
// mock implementation for running without hardware.
package provider

import (
	"github.com/geopaparazzi/tracklog/internal/channel"
	"github.com/geopaparazzi/tracklog/pkg/core"
)

// StatusEvent is a provider status change with satellite diagnostics.
type StatusEvent struct {
	Kind      core.ProviderEventKind
	UsedInFix int
	Visible   int
	Max       int
}

// Provider is a source of position samples and status events. Start
// begins delivery on the two channels; Stop ends it and closes them.
type Provider interface {
	Start() error
	Stop()
	Samples() channel.Receiver[*core.Sample]
	Events() channel.Receiver[StatusEvent]
}
