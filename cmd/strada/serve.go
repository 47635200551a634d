package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/strada-dev/strada/internal/config"
	"github.com/strada-dev/strada/pkg/manifest"
	"github.com/strada-dev/strada/pkg/middleware"
	"github.com/strada-dev/strada/pkg/router"
	"github.com/strada-dev/strada/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		addr string
		dir  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the navigation server",
		Long: `Serve hosts the project's redirect manifest over WebSocket. Clients
connect to /_strada/ws, send navigate frames, and receive the navigation
lifecycle as JSON events. Health and Prometheus endpoints ride the same
listener.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			routes, err := loadRoutes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			table, err := router.NewTable(routes, router.WithMaxRedirects(cfg.MaxRedirects))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// One metrics observer shared by every session's pipeline.
			srv := server.New(table, &server.ServerConfig{
				Address:     cfg.Addr,
				MaxSessions: cfg.MaxSessions,
			}, server.WithObservers(middleware.Prometheus()))

			fmt.Printf("strada serving on %s (%d routes)\n", cfg.Addr, len(routes))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides strada.json)")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "project directory")

	return cmd
}

// loadRoutes builds the served route set: manifest redirects, when
// configured, plus a wildcard fallback so unmatched URLs resolve instead of
// erroring.
func loadRoutes(ctx context.Context, cfg *config.Config) ([]*router.Route, error) {
	m, err := loadManifest(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var routes []*router.Route
	if m != nil {
		routes = m.Routes()
	}
	routes = append(routes,
		&router.Route{Path: "", Component: "Index", PathMatch: router.PathMatchFull},
		&router.Route{Path: router.Wildcard, Component: "NotFound"},
	)
	return routes, nil
}

// loadManifest fetches the redirect manifest from the configured source.
func loadManifest(ctx context.Context, cfg *config.Config) (*manifest.Manifest, error) {
	switch {
	case cfg.Manifest.Path != "":
		return manifest.LoadFile(cfg.Manifest.Path)
	case cfg.Manifest.S3 != nil:
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Manifest.S3.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Manifest.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(awsCfg)
		return manifest.LoadS3(ctx, client, cfg.Manifest.S3.Bucket, cfg.Manifest.S3.Key)
	default:
		return nil, nil
	}
}

