package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bokulich-lab/q2pkg/internal/render"
	"github.com/bokulich-lab/q2pkg/internal/runner"
	"github.com/bokulich-lab/q2pkg/pkg/models"
	"github.com/bokulich-lab/q2pkg/pkg/store"
)

var (
	buildPrefix   string
	buildTimeout  time.Duration
	buildSkipTest bool
)

var buildCmd = &cobra.Command{
	Use:   "build <recipe.yaml>",
	Short: "Build a recipe and record the artifact",
	Long: `Build renders the recipe, runs its build script inside the source
tree and records the outcome as an artifact. Unless --skip-test is
given, the recipe's test phase runs right after a successful build.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVar(&buildPrefix, "prefix", "", "install prefix exported to the build script as PREFIX")
	buildCmd.Flags().DurationVar(&buildTimeout, "timeout", 30*time.Minute, "per-phase timeout (0 disables)")
	buildCmd.Flags().BoolVar(&buildSkipTest, "skip-test", false, "skip the test phase after building")
}

func runBuild(cmd *cobra.Command, args []string) error {
	logger := newLogger().WithComponent("build")

	recipe, err := render.LoadRecipe(args[0], renderContext())
	if err != nil {
		return err
	}
	if err := recipe.Validate(); err != nil {
		return fmt.Errorf("recipe validation failed: %w", err)
	}

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	artifact := models.NewArtifact(recipe.Package.Name, recipe.Package.Version, recipe.Build.Number)
	if err := db.CreateArtifact(artifact); err != nil {
		return err
	}
	logger.Info("artifact created", map[string]interface{}{
		"id": artifact.ID, "recipe": recipe.Package.Name, "version": recipe.Package.Version,
	})

	opts := runner.Options{
		Prefix:  buildPrefix,
		Timeout: buildTimeout,
		Env:     phaseEnvVars(),
	}

	if err := db.UpdateArtifactStatus(artifact.ID, models.ArtifactStatusBuilding, "build started"); err != nil {
		return err
	}

	result, buildErr := runner.Build(cmd.Context(), artifact, recipe, opts)
	recordResult(db, artifact.ID, result, buildErr)

	if buildErr != nil {
		db.UpdateArtifactStatus(artifact.ID, models.ArtifactStatusFailed, buildErr.Error())
		return fmt.Errorf("build failed: %w", buildErr)
	}
	if err := db.UpdateArtifactStatus(artifact.ID, models.ArtifactStatusBuilt, "build succeeded"); err != nil {
		return err
	}

	if buildSkipTest {
		fmt.Printf("Built %s %s (artifact %s)\n", recipe.Package.Name, recipe.Package.Version, artifact.ID)
		return nil
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

	fmt.Printf("Built and tested %s %s (artifact %s)\n", recipe.Package.Name, recipe.Package.Version, artifact.ID)
	return nil
}

// phaseEnvVars exposes the configured epoch to build/test scripts
func phaseEnvVars() map[string]string {
	env := map[string]string{}
	if epoch != "" {
		env["QIIME2_EPOCH"] = epoch
	}
	return env
}

// recordResult persists the last phase outcome, tolerating a nil result
// when the phase never started.
func recordResult(db store.Store, artifactID string, result *runner.Result, phaseErr error) {
	if result == nil {
		if phaseErr != nil {
			db.UpdateArtifactResult(artifactID, -1, 0, phaseErr.Error())
		}
		return
	}
	errMsg := ""
	if phaseErr != nil {
		errMsg = phaseErr.Error()
		var perr *runner.PhaseError
		if errors.As(phaseErr, &perr) && perr.Kind == runner.ErrorKindTimeout {
			errMsg = fmt.Sprintf("%s phase timed out after %s", result.Phase, result.Duration.Round(time.Second))
		}
	}
	db.UpdateArtifactResult(artifactID, result.ExitCode, result.Duration.Seconds(), errMsg)
}
