package cli

import (
	"github.com/spf13/cobra"

	"repodeck/internal/tasks"
	"repodeck/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard",
	Long: `Start a browser dashboard on localhost showing recorded pipeline runs
and a live event stream. Runs can also be triggered over the API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		log, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.DashboardPort
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		handler := tasks.NewHandler(0, log)
		handler.Start()
		defer handler.Stop()

		return web.NewServer(store, handler, port, log).Start()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (default from settings)")
}
