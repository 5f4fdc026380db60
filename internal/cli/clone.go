package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"repodeck/internal/gitx"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <url> [dest]",
	Short: "Clone a repository into the configured base path",
	Long: `Clone a repository. Without an explicit destination the repo is placed
under clone_base_path using the name derived from the URL.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		branch, _ := cmd.Flags().GetString("branch")

		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		log, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		dest := ""
		if len(args) == 2 {
			dest = args[1]
		} else {
			name := gitx.RepoNameFromURL(url)
			if name == "" {
				return fmt.Errorf("cannot derive repository name from %q", url)
			}
			dest = filepath.Join(cfg.CloneBasePath, name)
		}

		git := gitClient(log)
		if err := git.Clone(cmd.Context(), url, dest, branch); err != nil {
			return err
		}
		cmd.Printf("Cloned %s into %s\n", url, dest)
		return nil
	},
}

func init() {
	cloneCmd.Flags().String("branch", "", "Branch to check out after cloning")
}
