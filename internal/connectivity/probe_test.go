package connectivity

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviles/coursedesk/internal/config"
	"github.com/moviles/coursedesk/internal/logger"
)

func TestDialer_Online(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	d := NewDialer(config.Probe{Address: ln.Addr().String(), Timeout: time.Second}, logger.Discard())

	assert.True(t, d.IsOnline(context.Background()))
}

func TestDialer_Offline(t *testing.T) {
	// Grab a free port, then release it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	d := NewDialer(config.Probe{Address: addr, Timeout: time.Second}, logger.Discard())

	assert.False(t, d.IsOnline(context.Background()))
}

func TestStatic(t *testing.T) {
	assert.True(t, Static(true).IsOnline(context.Background()))
	assert.False(t, Static(false).IsOnline(context.Background()))
}
