package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/estate-crm/internal/monitoring"
	"github.com/sells-group/estate-crm/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CRM API and live grid server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		collector := monitoring.NewCollector(st)
		srv := server.New(server.Deps{
			Store:         st,
			Service:       newService(st),
			Collector:     collector,
			Server:        cfg.Server,
			Import:        cfg.Import,
			LookbackHours: cfg.Stats.LookbackHours,
		})
		refresher := monitoring.NewRefresher(collector, time.Duration(cfg.Stats.RefreshSecs)*time.Second, cfg.Stats.LookbackHours)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			refresher.Run(gctx)
			return nil
		})
		g.Go(func() error {
			return srv.ListenAndServe(gctx, port)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
