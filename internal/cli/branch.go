package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Work with branches of a local repository",
}

var branchListCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List local branches",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := repoPathArg(args)
		if err != nil {
			return err
		}
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		log, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		git := gitClient(log)
		branches, err := git.Branches(cmd.Context(), path)
		if err != nil {
			return err
		}
		current, err := git.CurrentBranch(cmd.Context(), path)
		if err != nil {
			return err
		}
		for _, b := range branches {
			marker := "  "
			if b == current {
				marker = "* "
			}
			cmd.Printf("%s%s\n", marker, b)
		}
		return nil
	},
}

var branchCurrentCmd = &cobra.Command{
	Use:   "current [path]",
	Short: "Print the checked-out branch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := repoPathArg(args)
		if err != nil {
			return err
		}
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		log, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		current, err := gitClient(log).CurrentBranch(cmd.Context(), path)
		if err != nil {
			return err
		}
		cmd.Println(current)
		return nil
	},
}

var branchCheckoutCmd = &cobra.Command{
	Use:   "checkout <branch> [path]",
	Short: "Check out a branch",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := args[0]
		path, err := repoPathArg(args[1:])
		if err != nil {
			return err
		}
		create, _ := cmd.Flags().GetBool("create")

		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		log, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		if err := gitClient(log).Checkout(cmd.Context(), path, branch, create); err != nil {
			return err
		}
		cmd.Printf("Switched to %s\n", branch)
		return nil
	},
}

// repoPathArg resolves the optional trailing path argument, defaulting
// to the current directory.
func repoPathArg(args []string) (string, error) {
	if len(args) >= 1 && args[0] != "" {
		return args[0], nil
	}
	return os.Getwd()
}

func init() {
	branchCheckoutCmd.Flags().BoolP("create", "b", false, "Create the branch before checking it out")
	branchCmd.AddCommand(branchListCmd)
	branchCmd.AddCommand(branchCurrentCmd)
	branchCmd.AddCommand(branchCheckoutCmd)
}
