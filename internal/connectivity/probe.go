// Package connectivity answers "is the device online right now?".
//
// The answer is a point-in-time check: nothing is cached and there are no
// change notifications. Reconcilers ask once per action.
package connectivity

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/moviles/coursedesk/internal/config"
)

// Probe reports whether the network is reachable.
type Probe interface {
	IsOnline(ctx context.Context) bool
}

// Dialer probes by opening (and immediately closing) a TCP connection to
// a fixed address, usually the API host.
type Dialer struct {
	address string
	timeout time.Duration
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
	log     *slog.Logger
}

// NewDialer builds a Dialer from the probe configuration.
func NewDialer(cfg config.Probe, log *slog.Logger) *Dialer {
	d := &net.Dialer{}
	return &Dialer{
		address: cfg.Address,
		timeout: cfg.Timeout,
		dial:    d.DialContext,
		log:     log.With(slog.String("component", "connectivity")),
	}
}

// IsOnline dials the configured address within the probe timeout.
func (d *Dialer) IsOnline(ctx context.Context) bool {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	conn, err := d.dial(ctx, "tcp", d.address)
	if err != nil {
		d.log.Debug("offline", slog.String("address", d.address), slog.String("error", err.Error()))
		return false
	}
	conn.Close()
	return true
}

// Static is a Probe with a fixed answer, e.g. for a forced offline mode.
type Static bool

func (s Static) IsOnline(context.Context) bool {
	return bool(s)
}
