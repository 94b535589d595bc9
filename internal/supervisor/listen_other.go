//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package supervisor

import (
	"context"
	"net"
)

const ReusePortSupported = false

// Listen is a plain listener; without SO_REUSEPORT the pool runs a single worker.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}
