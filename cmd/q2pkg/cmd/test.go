package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bokulich-lab/q2pkg/internal/render"
	"github.com/bokulich-lab/q2pkg/internal/runner"
	"github.com/bokulich-lab/q2pkg/pkg/models"
)

var (
	testArtifactID string
	testTimeout    time.Duration
)

var testCmd = &cobra.Command{
	Use:   "test <recipe.yaml>",
	Short: "Run a recipe's test phase",
	Long: `Test runs the recipe's declared import checks and test commands.
With --artifact the outcome is recorded against an existing built
artifact; without it the phase runs detached from the store.`,
	Args: cobra.ExactArgs(1),
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().StringVar(&testArtifactID, "artifact", "", "built artifact ID to record the outcome on")
	testCmd.Flags().DurationVar(&testTimeout, "timeout", 30*time.Minute, "per-command timeout (0 disables)")
}

func runTest(cmd *cobra.Command, args []string) error {
	recipe, err := render.LoadRecipe(args[0], renderContext())
	if err != nil {
		return err
	}

	opts := runner.Options{Timeout: testTimeout, Env: phaseEnvVars()}

	if testArtifactID == "" {
		artifact := models.NewArtifact(recipe.Package.Name, recipe.Package.Version, recipe.Build.Number)
		_, testErr := runner.Test(cmd.Context(), artifact, recipe, opts)
		if testErr != nil {
			return fmt.Errorf("test failed: %w", testErr)
		}
		fmt.Printf("Tests passed for %s %s\n", recipe.Package.Name, recipe.Package.Version)
		return nil
	}

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	artifact, err := db.GetArtifact(testArtifactID)
	if err != nil {
		return err
	}
	if artifact.Status != models.ArtifactStatusBuilt {
		return fmt.Errorf("artifact %s is %s, expected %s", artifact.ID, artifact.Status, models.ArtifactStatusBuilt)
	}

	if err := db.UpdateArtifactStatus(artifact.ID, models.ArtifactStatusTesting, "test started"); err != nil {
		return err
	}
	results, testErr := runner.Test(cmd.Context(), artifact, recipe, opts)
	if len(results) > 0 {
		recordResult(db, artifact.ID, results[len(results)-1], testErr)
	}
	if testErr != nil {
		db.UpdateArtifactStatus(artifact.ID, models.ArtifactStatusFailed, testErr.Error())
		return fmt.Errorf("test failed: %w", testErr)
	}
	if err := db.UpdateArtifactStatus(artifact.ID, models.ArtifactStatusTested, "tests passed"); err != nil {
		return err
	}

	fmt.Printf("Tests passed for artifact %s\n", artifact.ID)
	return nil
}
