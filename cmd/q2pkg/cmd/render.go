package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bokulich-lab/q2pkg/internal/render"
)

var renderSourceDir string

var renderCmd = &cobra.Command{
	Use:   "render <recipe.yaml>",
	Short: "Render a recipe template",
	Long: `Render expands the recipe's template expressions: variables such as
{{ qiime2_epoch }} and version data loaders. The rendered document is
printed as YAML, or as the parsed recipe when --output json is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renderSourceDir, "source", "", "source tree for version resolution (default: recipe directory)")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := renderContext()
	ctx.SourceDir = renderSourceDir

	if IsJSONOutput() {
		recipe, err := render.LoadRecipe(args[0], ctx)
		if err != nil {
			return err
		}
		return printJSON(recipe)
	}

	if ctx.SourceDir == "" {
		ctx.SourceDir = filepath.Dir(args[0])
	}
	rendered, err := render.New(ctx).RenderFile(args[0])
	if err != nil {
		return err
	}
	fmt.Print(string(rendered))
	return nil
}
