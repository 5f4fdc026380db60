package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "repodeck",
	Short: "repodeck — manage GitHub repositories and run local CI pipelines",
	Long: `repodeck clones and manages GitHub repositories via the gh CLI, and runs
the local CI pipeline defined in a repo's .local_ci.yaml.

Settings live in ~/.repodeck/config.json and run history in ~/.repodeck/history.db.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(ciCmd)
	rootCmd.AddCommand(serveCmd)
}
