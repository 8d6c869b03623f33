package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dverbeek/ramify"
	httpAdapter "github.com/dverbeek/ramify/internal/adapters/http"
	"github.com/dverbeek/ramify/pkg/schema"
)

var serveCmd = &cobra.Command{
	Use:   "serve <machine.yaml>",
	Short: "Start the HTTP server",
	Long:  `Loads a machine definition and exposes it as a JSON API over HTTP, with Prometheus metrics on /metrics.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		haltOnError, _ := cmd.Flags().GetBool("halt-on-error")
		logger := commandLogger(cmd)

		def, err := schema.LoadFile(args[0])
		if err != nil {
			fmt.Printf("Error loading definition: %v\n", err)
			os.Exit(1)
		}

		metrics := httpAdapter.NewMetrics(prometheus.DefaultRegisterer)

		opts := []ramify.Option{
			ramify.WithLogger(logger),
			ramify.WithName(args[0]),
			ramify.WithLifecycleHooks(metrics.Hooks()),
		}
		if haltOnError {
			opts = append(opts, ramify.WithHaltOnActionError())
		}
		machine, err := ramify.New(def, opts...)
		if err != nil {
			fmt.Printf("Error initializing machine: %v\n", err)
			os.Exit(1)
		}

		handler := httpAdapter.NewHandler(machine, metrics, logger)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Ramify Server on %s\n", srv.Addr)
			fmt.Printf("Serving machine: %s\n", args[0])
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Ramify Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
