// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command orders is a small HTTP service which wires the logging
// bootstrap, the request span middleware and the instrumented client
// together.
//
// Logging is configured from an optional YAML file overridden by
// LOG_ prefixed environment variables and finally by flags. The YAML
// keys are the environment variable names without the prefix, e.g.
// SERVICE_NAME or OTLP_ENDPOINT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/z5labs/beacon/config"
	"github.com/z5labs/beacon/guard"
	"github.com/z5labs/beacon/http/httpclient"
	"github.com/z5labs/beacon/http/httpotel"
	"github.com/z5labs/beacon/logging"
	"github.com/z5labs/beacon/pkg/slogfield"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := buildCmd().ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

type flags struct {
	addr         string
	configFile   string
	format       string
	level        string
	inventoryURL string
}

func buildCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "orders",
		Short:         "Serve the orders API",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loggingBuilder(cmd, f)
			if err != nil {
				return err
			}

			g, err := b.Init(cmd.Context())
			if err != nil {
				return err
			}
			return guard.Run(cmd.Context(), g, func(ctx context.Context) error {
				return serve(ctx, f)
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.addr, "addr", ":8080", "address to listen on")
	fs.StringVar(&f.configFile, "config", "", "optional YAML file with logging config")
	fs.StringVar(&f.format, "log-format", "", "compact, pretty or json")
	fs.StringVar(&f.level, "log-level", "", "trace, debug, info, warn or error")
	fs.StringVar(&f.inventoryURL, "inventory-url", "", "base URL of the inventory service")
	return cmd
}

func loggingBuilder(cmd *cobra.Command, f flags) (*logging.Builder, error) {
	var srcs []config.Source
	if f.configFile != "" {
		file, err := os.Open(f.configFile)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, config.FromYaml(file))
	}
	srcs = append(srcs, config.FromEnv(logging.DefaultEnvPrefix))

	b, err := logging.FromConfig(srcs...)
	if err != nil {
		return nil, err
	}
	if b.Config().ServiceName == "" {
		b.WithServiceName(cmd.Name())
	}

	if cmd.Flags().Changed("log-format") {
		format, err := logging.ParseFormat(f.format)
		if err != nil {
			return nil, err
		}
		b.WithFormat(format)
	}
	if cmd.Flags().Changed("log-level") {
		lvl, err := logging.ParseLevel(f.level)
		if err != nil {
			return nil, err
		}
		b.WithLevel(lvl)
	}
	return b, nil
}

func serve(ctx context.Context, f flags) error {
	ls, err := net.Listen("tcp", f.addr)
	if err != nil {
		return err
	}

	var inv inventory
	if f.inventoryURL != "" {
		inv = &inventoryClient{
			baseURL: f.inventoryURL,
			client: httpclient.New(
				httpclient.Name("inventory"),
				httpclient.Timeout(5*time.Second),
				httpclient.RetryMax(2),
				httpclient.TripAfter(5),
			),
		}
	}

	s := &http.Server{
		Handler: httpotel.NewMiddleware().Handler(newMux(newStore(), inv)),
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	log := slog.Default()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		defer log.Info("shut down service")

		log.Info("shutting down service")
		return s.Shutdown(ctx)
	})
	g.Go(func() error {
		log.Info("started service", slogfield.String("addr", ls.Addr().String()))
		return s.Serve(ls)
	})

	err = g.Wait()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	log.Error("service encountered unexpected error", slogfield.Error(err))
	return fmt.Errorf("serve orders api: %w", err)
}
