// Package tunnel exposes the local webhook port through a public localtunnel
// URL, for development against the real Facebook webhook verifier.
package tunnel

import (
	"fmt"

	"github.com/localtunnel/go-localtunnel"

	"github.com/tinyland-inc/fbrelay/pkg/logger"
)

// Tunnel forwards a public https endpoint to the local webhook port.
type Tunnel struct {
	lt *localtunnel.LocalTunnel
}

// Open requests a tunnel for port, asking for subdomainPrefix when set. The
// prefix is a request, not a guarantee; the assigned URL is what counts.
func Open(port int, subdomainPrefix string) (*Tunnel, error) {
	lt, err := localtunnel.New(port, "localhost", localtunnel.Options{
		Subdomain: subdomainPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open tunnel: %w", err)
	}

	logger.InfoCF("tunnel", "Tunnel open", map[string]any{
		"url":     lt.URL(),
		"webhook": lt.URL() + "/webhook",
	})
	return &Tunnel{lt: lt}, nil
}

// URL returns the assigned public base URL.
func (t *Tunnel) URL() string {
	return t.lt.URL()
}

func (t *Tunnel) Close() error {
	return t.lt.Close()
}
