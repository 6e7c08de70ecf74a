package benchmarks

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeu5/grid-rl-env/grid"
	"github.com/zeu5/grid-rl-env/remote"
	"go.uber.org/zap"
)

func ServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve environment sessions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			return remote.NewServer(addr, logger).Start(ctx)
		},
	}
	cmd.PersistentFlags().StringVarP(&addr, "addr", "a", "127.0.0.1:8080", "Address to listen on")
	return cmd
}

// SimulateCommand serves a sandbox backend for environments configured with
// the remote backend
func SimulateCommand() *cobra.Command {
	var addr string
	var noise float64
	var loadScale float64
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve a sandbox backend to remote backend clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := grid.NewSandboxBackend(grid.SandboxOptions{Noise: noise, LoadScale: loadScale})
			handler := remote.NewSimulatorHandler(backend, logger)
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Engine(),
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				server.Shutdown(shutdownCtx)
			}()
			logger.Info("serving simulator", zap.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return backend.Close()
		},
	}
	defaults := grid.DefaultSandboxOptions()
	cmd.PersistentFlags().StringVarP(&addr, "addr", "a", "127.0.0.1:7070", "Address to listen on")
	cmd.PersistentFlags().Float64Var(&noise, "noise", defaults.Noise, "Relative noise on flows")
	cmd.PersistentFlags().Float64Var(&loadScale, "load-scale", defaults.LoadScale, "Multiplier of every flow")
	return cmd
}
