package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"repodeck/internal/github"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage GitHub repositories via the gh CLI",
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		repos, err := ghClient().ListRepos(limit)
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			cmd.Println("No repositories found.")
			return nil
		}

		cmd.Printf("%-40s %-8s %s\n", "REPO", "VISIBILITY", "UPDATED")
		for _, r := range repos {
			visibility := "public"
			if r.IsPrivate {
				visibility = "private"
			}
			cmd.Printf("%-40s %-8s %s\n", r.NameWithOwner, visibility, r.UpdatedAt)
		}
		return nil
	},
}

var repoViewCmd = &cobra.Command{
	Use:   "view <name>",
	Short: "Show repository details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ghClient().GetRepo(args[0])
		if err != nil {
			return err
		}

		cmd.Printf("Name:           %s\n", repo.NameWithOwner)
		cmd.Printf("Description:    %s\n", repo.Description)
		cmd.Printf("URL:            %s\n", repo.URL)
		cmd.Printf("Clone URL:      %s\n", repo.CloneURL())
		cmd.Printf("Default branch: %s\n", repo.DefaultBranch.Name)
		cmd.Printf("Private:        %v\n", repo.IsPrivate)
		cmd.Printf("Fork:           %v\n", repo.IsFork)
		return nil
	},
}

var repoReadmeCmd = &cobra.Command{
	Use:   "readme <name>",
	Short: "Print the repository README",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := ghClient().Readme(args[0])
		if err != nil {
			return err
		}
		if content == "" {
			cmd.Println("No README found.")
			return nil
		}
		cmd.Print(content)
		if !strings.HasSuffix(content, "\n") {
			cmd.Println()
		}
		return nil
	},
}

var repoCommitsCmd = &cobra.Command{
	Use:   "commits <name>",
	Short: "Show recent commits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		branch, _ := cmd.Flags().GetString("branch")

		commits, err := ghClient().Commits(args[0], branch, limit)
		if err != nil {
			return err
		}
		for _, c := range commits {
			sha := c.SHA
			if len(sha) > 7 {
				sha = sha[:7]
			}
			subject := c.Message
			if i := strings.IndexByte(subject, '\n'); i >= 0 {
				subject = subject[:i]
			}
			cmd.Printf("%s  %-50s %s (%s)\n", sha, subject, c.Author, c.Date)
		}
		return nil
	},
}

var repoPRsCmd = &cobra.Command{
	Use:   "prs <name>",
	Short: "List pull requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		state, _ := cmd.Flags().GetString("state")

		prs, err := ghClient().PullRequests(args[0], state, limit)
		if err != nil {
			return err
		}
		if len(prs) == 0 {
			cmd.Println("No pull requests found.")
			return nil
		}
		for _, pr := range prs {
			cmd.Printf("#%-5d %-8s %-60s %s\n", pr.Number, pr.State, pr.Title, pr.Author)
		}
		return nil
	},
}

var repoCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		private, _ := cmd.Flags().GetBool("private")
		addReadme, _ := cmd.Flags().GetBool("add-readme")

		repo, err := ghClient().CreateRepo(github.CreateRepoOpts{
			Name:        args[0],
			Description: description,
			Private:     private,
			AddReadme:   addReadme,
		})
		if err != nil {
			return err
		}
		cmd.Printf("Created %s (%s)\n", repo.NameWithOwner, repo.URL)
		return nil
	},
}

var repoRenameCmd = &cobra.Command{
	Use:   "rename <name> <new-name>",
	Short: "Rename a repository on GitHub",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := ghClient().RenameRepo(args[0], args[1])
		if err != nil {
			return err
		}
		cmd.Printf("Renamed to %s\n", repo.NameWithOwner)
		return nil
	},
}

var repoDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a repository on GitHub (destructive!)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			return fmt.Errorf("refusing to delete %s without --yes", args[0])
		}
		if err := ghClient().DeleteRepo(args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	repoListCmd.Flags().Int("limit", 30, "Maximum repositories to list")
	repoCommitsCmd.Flags().Int("limit", 20, "Maximum commits to show")
	repoCommitsCmd.Flags().String("branch", "", "Branch to read history from (default branch when empty)")
	repoPRsCmd.Flags().Int("limit", 30, "Maximum pull requests to list")
	repoPRsCmd.Flags().String("state", "open", "PR state: open, closed, merged, all")
	repoCreateCmd.Flags().String("description", "", "Repository description")
	repoCreateCmd.Flags().Bool("private", false, "Create as a private repository")
	repoCreateCmd.Flags().Bool("add-readme", false, "Initialize with a README")
	repoDeleteCmd.Flags().Bool("yes", false, "Confirm deletion")

	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoViewCmd)
	repoCmd.AddCommand(repoReadmeCmd)
	repoCmd.AddCommand(repoCommitsCmd)
	repoCmd.AddCommand(repoPRsCmd)
	repoCmd.AddCommand(repoCreateCmd)
	repoCmd.AddCommand(repoRenameCmd)
	repoCmd.AddCommand(repoDeleteCmd)
}
