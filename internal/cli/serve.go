package cli

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	ssp "github.com/goliatone/go-socialshare"
	"github.com/goliatone/go-socialshare/internal/config"
	"github.com/goliatone/go-socialshare/internal/server"
	"github.com/goliatone/go-socialshare/pkg/state"
	"github.com/goliatone/go-socialshare/pkg/state/cookiestore"
	"github.com/goliatone/go-socialshare/pkg/state/sqlitestore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo share widget page",
	Long: `Starts an HTTP server that renders the configured widget. Perma-options
are kept in cookies by default, or in a SQLite file with server.store=sqlite.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := newLogger()

		stores, closeStore, err := storeFactory(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		srv, err := server.New(cfg, stores, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func storeFactory(cfg *config.Config) (server.StoreFactory, func(), error) {
	switch cfg.Server.Store {
	case config.StoreSQLite:
		backend, err := sqlitestore.Open(cfg.Server.SQLitePath, sqlitestore.WithNamespace(cfg.Server.Namespace))
		if err != nil {
			return nil, nil, fmt.Errorf("opening perma store: %w", err)
		}
		store := state.NewStore(backend)
		return func(http.ResponseWriter, *http.Request) ssp.PermaStore { return store },
			func() { _ = backend.Close() }, nil
	case config.StoreMemory:
		store := state.NewStore(state.NewMemoryBackend())
		return func(http.ResponseWriter, *http.Request) ssp.PermaStore { return store },
			func() {}, nil
	default:
		return func(w http.ResponseWriter, r *http.Request) ssp.PermaStore {
			return cookiestore.NewStore(r, w)
		}, func() {}, nil
	}
}
