package transport

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
)

// Open connects the transport selected by cfg. Each call yields a fresh,
// exclusively owned transport.
func Open(ctx context.Context, cfg entities.DeviceConfig, logger *zap.Logger) (ports.Transport, error) {
	return openWith(ctx, cfg, Options{
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         logger,
	})
}

func openWith(ctx context.Context, cfg entities.DeviceConfig, opts Options) (ports.Transport, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("device target is required")
	}
	switch cfg.TransportID() {
	case entities.TransportSSH:
		st, err := DialSSH(ctx, cfg.Address(), SSHCredentials{
			Username: cfg.Username,
			Password: cfg.Password,
			UseAgent: cfg.UseAgent,
		}, opts)
		if err != nil {
			return nil, err
		}
		return st, nil
	case entities.TransportTelnet:
		tt, err := DialTelnet(ctx, cfg.Address(), opts)
		if err != nil {
			return nil, err
		}
		return tt, nil
	default:
		return nil, fmt.Errorf("transport %s is invalid, must be 'telnet' or 'ssh'", cfg.Transport)
	}
}
