package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinyland-inc/fbrelay/cmd/fbrelay/internal"
	"github.com/tinyland-inc/fbrelay/pkg/bus"
	"github.com/tinyland-inc/fbrelay/pkg/logger"
	"github.com/tinyland-inc/fbrelay/pkg/messenger"
	"github.com/tinyland-inc/fbrelay/pkg/relay"
	"github.com/tinyland-inc/fbrelay/pkg/session"
	"github.com/tinyland-inc/fbrelay/pkg/teneo"
	"github.com/tinyland-inc/fbrelay/pkg/tunnel"
	"github.com/tinyland-inc/fbrelay/pkg/webhook"
)

func serveCmd(debug, noTunnel bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("Debug mode enabled")
	} else {
		logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := newSessionStore(ctx, cfg.Session.RedisURL, cfg.SessionTTL())
	if err != nil {
		return fmt.Errorf("error opening session store: %w", err)
	}

	engine := teneo.NewClient(cfg.Engine.URL, cfg.EngineTimeout())
	sender := messenger.NewClient(cfg.Facebook.APIBase, cfg.Facebook.PageAccessToken, cfg.SendTimeout())
	msgBus := bus.NewMessageBus()

	r := relay.New(msgBus, engine, sender, store, cfg.Engine.Channel, cfg.EngineTimeout(), cfg.SendTimeout())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := webhook.NewServer(msgBus, addr, cfg.Facebook.VerifyToken, cfg.Facebook.AppSecret)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("webhook", "Server error", map[string]any{"error": err.Error()})
			cancel()
		}
	}()
	go r.Run(ctx)

	var tun *tunnel.Tunnel
	if cfg.Tunnel.Enabled && !noTunnel {
		tun, err = tunnel.Open(cfg.Server.Port, cfg.Tunnel.Subdomain)
		if err != nil {
			// The relay still works behind any other public endpoint.
			logger.WarnCF("tunnel", "Tunnel failed to open", map[string]any{"error": err.Error()})
		} else {
			fmt.Printf("Tunnel open at %s\n", tun.URL())
		}
	}

	fmt.Printf("Relay started on %s\n", addr)
	fmt.Printf("Engine: %s\n", cfg.Engine.URL)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	fmt.Println("\nShutting down...")
	if tun != nil {
		tun.Close()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.WarnCF("webhook", "Shutdown error", map[string]any{"error": err.Error()})
	}
	cancel()
	msgBus.Close()
	r.Stop()
	if closer, ok := store.(interface{ Close() error }); ok {
		closer.Close()
	}
	fmt.Println("Relay stopped")

	return nil
}

// newSessionStore picks Redis when configured, process memory otherwise.
// In-memory sessions reset on restart, which only costs users a fresh
// Engine conversation.
func newSessionStore(ctx context.Context, redisURL string, ttl time.Duration) (session.Store, error) {
	if redisURL == "" {
		logger.InfoC("session", "Using in-memory session store")
		return session.NewMemoryStore(), nil
	}

	store, err := session.NewRedisStore(ctx, redisURL, ttl)
	if err != nil {
		return nil, err
	}
	logger.InfoCF("session", "Using Redis session store", map[string]any{"ttl": ttl.String()})
	return store, nil
}
