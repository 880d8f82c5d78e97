package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Veraticus/spice-ledger/internal/api"
	"github.com/Veraticus/spice-ledger/internal/certs"
	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/ledger"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Serve exposes the ledger as a JSON API.

Reads always see a consistent snapshot. SMS, manual and receipt entries can
be posted; posts are rate limited.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: serve.addr)")
	cmd.Flags().Float64("write-limit", 5, "Allowed POST requests per second")
	cmd.Flags().Int("write-burst", 10, "POST requests allowed in a burst")
	cmd.Flags().Bool("tls", false, "Serve HTTPS with a self-signed certificate")
	cmd.Flags().String("cert-dir", "", "Where the self-signed certificate is kept (default: $HOME/.config/spice/certs)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.ServeAddr
	}
	writeLimit, _ := cmd.Flags().GetFloat64("write-limit")
	writeBurst, _ := cmd.Flags().GetInt("write-burst")

	srv := api.New(api.Deps{
		Ledger:     a.ledger,
		Ingest:     a.ingest,
		Engine:     a.engine,
		Budgets:    a.store,
		Logger:     a.logger.With("component", "api"),
		WriteLimit: rate.Limit(writeLimit),
		WriteBurst: writeBurst,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheme := "http"
	if useTLS, _ := cmd.Flags().GetBool("tls"); useTLS {
		certDir, _ := cmd.Flags().GetString("cert-dir")
		tlsConfig, err := serverTLS(certDir, addr)
		if err != nil {
			return err
		}
		server.TLSConfig = tlsConfig
		scheme = "https"
	}

	updates, cancel := a.ledger.Subscribe()
	defer cancel()
	go logUpdates(updates, a.logger)

	errCh := make(chan error, 1)
	go func() {
		if server.TLSConfig != nil {
			errCh <- server.ListenAndServeTLS("", "")
			return
		}
		errCh <- server.ListenAndServe()
	}()
	cmd.Println(cli.FormatInfo(fmt.Sprintf("Serving %d entries on %s://%s", a.ledger.Snapshot().Len(), scheme, addr)))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// logUpdates logs every published snapshot until the subscription closes.
func logUpdates(updates <-chan *ledger.Snapshot, logger *slog.Logger) {
	for snap := range updates {
		logger.Info("ledger updated", "entries", snap.Len())
	}
}

// serverTLS loads or creates a certificate covering the listen host.
func serverTLS(certDir, addr string) (*tls.Config, error) {
	if certDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		certDir = filepath.Join(home, ".config", "spice", "certs")
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = ""
	}
	return certs.NewStore(config.ExpandPath(certDir), host).TLSConfig()
}
