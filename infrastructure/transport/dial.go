package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// DefaultConnectTimeout bounds the whole dial phase across all addresses
const DefaultConnectTimeout = 30 * time.Second

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Resolver maps a host name to addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Options configures how a transport connects
type Options struct {
	ConnectTimeout time.Duration
	Dialer         Dialer
	Resolver       Resolver
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.Dialer == nil {
		o.Dialer = &net.Dialer{}
	}
	if o.Resolver == nil {
		o.Resolver = net.DefaultResolver
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// dialFirst resolves address and tries each result in order until one
// connects. The connect timeout covers resolution and every attempt.
func dialFirst(ctx context.Context, address string, opts Options) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, NewConnectError(Unreachable, address, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	var hosts []string
	if net.ParseIP(host) != nil {
		hosts = []string{host}
	} else {
		hosts, err = opts.Resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, NewConnectError(Unreachable, address, fmt.Errorf("resolve %s: %w", host, err))
		}
		if len(hosts) == 0 {
			return nil, NewConnectError(Unreachable, address, fmt.Errorf("resolve %s: no addresses", host))
		}
	}

	var errs []error
	for _, h := range hosts {
		candidate := net.JoinHostPort(h, port)
		conn, err := opts.Dialer.DialContext(ctx, "tcp", candidate)
		if err == nil {
			opts.Logger.Debug("connected", zap.String("address", candidate))
			return conn, nil
		}
		opts.Logger.Debug("dial failed",
			zap.String("address", candidate),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", candidate, err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, NewConnectError(Unreachable, address, errors.Join(errs...))
}
