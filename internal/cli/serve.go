package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/decision-ledger/internal/catalog"
	"github.com/ppiankov/decision-ledger/internal/server"
)

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the decision ledger HTTP API",
	Example: `  ledger serve
  ledger serve --addr :9000 --watch --backend postgres`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(a.cfg, server.Deps{
			Catalog:    a.store,
			Decisions:  a.decisions,
			Governance: a.governance,
			QA:         a.qa,
			Explainer:  a.explainer,
			Metrics:    a.metrics,
			Limiter:    a.limiter,
		})

		if a.cfg.Fixtures.Watch {
			go watchFixtures(ctx, a.store)
		}

		slog.Info("starting decision ledger",
			"version", Version,
			"fixtures", a.cfg.Fixtures.Dir,
			"backend", a.runs.Backend(),
			"llm", a.explainer.Enabled(),
		)
		return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
	},
}

func watchFixtures(ctx context.Context, store *catalog.FileStore) {
	if err := store.Watch(ctx, catalog.DefaultDebounce, nil); err != nil {
		slog.Error("fixture watcher stopped", "error", err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().Bool("watch", false, "reload fixtures when files change")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("fixtures.watch", serveCmd.Flags().Lookup("watch"))
}
