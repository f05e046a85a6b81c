package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelscraper/pkg/source"
	"reelscraper/pkg/ui"
)

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage tracked users, projects, competitors and hashtags",
}

// sourcesImportCmd represents the sources import command
var sourcesImportCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Import users and their sources from a YAML manifest",
	Long: `Import users, projects, competitor accounts and hashtags from a YAML
manifest. Existing users and projects are matched by name and sources
already tracked by a project are left alone, so importing the same
manifest twice changes nothing.

Manifest format:

  users:
    - name: alice
      projects:
        - name: coffee
          competitors: ["@bluebottle", "https://www.instagram.com/stumptown/"]
          hashtags: ["#latteart"]`,
	Args: cobra.ExactArgs(1),
	RunE: runSourcesImport,
}

// sourcesListCmd represents the sources list command
var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active users, projects and sources a daily run processes",
	Args:  cobra.NoArgs,
	RunE:  runSourcesList,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesImportCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
}

func runSourcesImport(cmd *cobra.Command, args []string) error {
	manifest, err := source.LoadManifest(args[0])
	if err != nil {
		return startupError(err)
	}

	cfg, err := loadConfig(map[string]interface{}{})
	if err != nil {
		return startupError(err)
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return startupError(err)
	}
	defer st.Close()

	result, err := st.ImportUsers(cmd.Context(), manifest.ToModels())
	if err != nil {
		return err
	}

	ui.PrintSuccess("Manifest imported: " + args[0])
	ui.PrintInfo("Users added", fmt.Sprint(result.Users))
	ui.PrintInfo("Projects added", fmt.Sprint(result.Projects))
	ui.PrintInfo("Competitors added", fmt.Sprint(result.Competitors))
	ui.PrintInfo("Hashtags added", fmt.Sprint(result.Hashtags))
	return nil
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{})
	if err != nil {
		return startupError(err)
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return startupError(err)
	}
	defer st.Close()

	ctx := cmd.Context()
	users, err := st.ListActiveUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		ui.PrintInfo("No active users", "import some with 'reelscraper sources import <manifest.yaml>'")
		return nil
	}

	for _, user := range users {
		fmt.Println(ui.Magenta(user.Name))
		projects, err := st.ListActiveProjects(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, project := range projects {
			fmt.Printf("  %s %s\n", ui.Cyan(project.Name), ui.Dim(project.ID))

			competitors, err := st.ListActiveCompetitors(ctx, project.ID)
			if err != nil {
				return err
			}
			for _, c := range competitors {
				fmt.Printf("    %s %s -> %s\n", ui.Dim("competitor"), c.Descriptor(), ui.Yellow(source.Normalize(c.Descriptor())))
			}

			hashtags, err := st.ListActiveHashtags(ctx, project.ID)
			if err != nil {
				return err
			}
			for _, h := range hashtags {
				fmt.Printf("    %s %s -> %s\n", ui.Dim("hashtag   "), h.TagName, ui.Yellow(source.Normalize(h.TagName)))
			}
		}
	}
	return nil
}
