// Package login defines the external login/session provider contract and a
// custodial provider that holds the account key locally.
package login

import (
	"context"

	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

// Status is the provider lifecycle signal.
type Status string

const (
	StatusNotReady     Status = "not_ready"
	StatusReady        Status = "ready"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusErrored      Status = "errored"
)

// Provider is a login/session provider.
//
// Statuses delivers every status change in order. Handle returns the
// connection handle while connected and nil otherwise.
type Provider interface {
	Statuses() <-chan Status
	Connect(ctx context.Context) error
	Logout(ctx context.Context) error
	UserInfo() models.UserInfo
	Handle() any
}
