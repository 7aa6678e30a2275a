package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

var artifactsStatus string

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Inspect recorded build artifacts",
	Long:  `Commands for listing, showing and deleting artifacts from the build database.`,
}

var artifactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded artifacts",
	RunE:  runArtifactsList,
}

var artifactsShowCmd = &cobra.Command{
	Use:   "show <artifact-id>",
	Short: "Show one artifact including its state history",
	Args:  cobra.ExactArgs(1),
	RunE:  runArtifactsShow,
}

var artifactsDeleteCmd = &cobra.Command{
	Use:   "delete <artifact-id>",
	Short: "Delete an artifact record",
	Args:  cobra.ExactArgs(1),
	RunE:  runArtifactsDelete,
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.AddCommand(artifactsListCmd)
	artifactsCmd.AddCommand(artifactsShowCmd)
	artifactsCmd.AddCommand(artifactsDeleteCmd)

	artifactsListCmd.Flags().StringVar(&artifactsStatus, "status", "", "only artifacts in this status")
}

func runArtifactsList(cmd *cobra.Command, args []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	var artifacts []*models.Artifact
	if artifactsStatus != "" {
		artifacts = db.GetArtifactsByStatus(models.ArtifactStatus(artifactsStatus))
	} else {
		artifacts = db.GetAllArtifacts()
	}

	if IsJSONOutput() {
		if artifacts == nil {
			artifacts = []*models.Artifact{}
		}
		return printJSON(artifacts)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Recipe", "Version", "Status", "Duration", "Created")
	for _, artifact := range artifacts {
		duration := "-"
		if artifact.DurationSeconds > 0 {
			duration = fmt.Sprintf("%.1fs", artifact.DurationSeconds)
		}
		table.Append(
			artifact.ID,
			artifact.RecipeName,
			artifact.Version,
			string(artifact.Status),
			duration,
			artifact.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	table.Render()
	return nil
}

func runArtifactsShow(cmd *cobra.Command, args []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	artifact, err := db.GetArtifact(args[0])
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(artifact)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append("ID", artifact.ID)
	table.Append("Recipe", artifact.RecipeName)
	table.Append("Version", artifact.Version)
	table.Append("Build number", fmt.Sprintf("%d", artifact.BuildNumber))
	table.Append("Status", string(artifact.Status))
	table.Append("Exit code", fmt.Sprintf("%d", artifact.ExitCode))
	if artifact.DurationSeconds > 0 {
		table.Append("Duration", fmt.Sprintf("%.1fs", artifact.DurationSeconds))
	}
	if artifact.Error != "" {
		table.Append("Error", artifact.Error)
	}
	table.Append("Created", artifact.CreatedAt.Format("2006-01-02 15:04:05"))
	table.Render()

	if len(artifact.StateTransitions) > 0 {
		fmt.Println("\nState history:")
		history := tablewriter.NewWriter(os.Stdout)
		history.Header("From", "To", "Reason", "At")
		for _, t := range artifact.StateTransitions {
			history.Append(string(t.From), string(t.To), t.Reason, t.Timestamp.Format("15:04:05"))
		}
		history.Render()
	}
	return nil
}

func runArtifactsDelete(cmd *cobra.Command, args []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteArtifact(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted artifact %s\n", args[0])
	return nil
}
