package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/desertthunder/tophits/internal/server"
	"github.com/desertthunder/tophits/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP server until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	serverConfig := r.config.Server
	if addr := cmd.String("addr"); addr != "" {
		host, port, err := splitAddr(addr)
		if err != nil {
			return err
		}
		serverConfig.Host, serverConfig.Port = host, port
	}

	if !r.config.Credentials.Spotify.HasCredentials() {
		r.logger.Warn("spotify credentials are not set, catalog requests will fail",
			"env", "SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Opts{
		Config:  serverConfig,
		Catalog: r.catalog,
		Engine:  r.engine,
		Metrics: r.metrics,
		Logger:  shared.WithLogger(r.logger, "component", "server"),
	})

	ln, err := net.Listen("tcp", serverConfig.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", serverConfig.Addr(), err)
	}

	if cmd.Bool("open") {
		url := browserURL(ln.Addr())
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("could not open browser", "url", url, "error", err)
		}
	}

	return srv.Serve(ctx, ln)
}

// splitAddr parses a host:port listen address.
func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("%w: addr %q: %v", shared.ErrInvalidArgument, addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: addr %q has an invalid port", shared.ErrInvalidArgument, addr)
	}
	return host, port, nil
}

// browserURL turns a listener address into a URL a local browser can reach.
func browserURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}
