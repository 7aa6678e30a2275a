package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bokulich-lab/q2pkg/internal/lint"
	"github.com/bokulich-lab/q2pkg/internal/render"
)

var lintStrict bool

var lintCmd = &cobra.Command{
	Use:   "lint <recipe.yaml>",
	Short: "Check a recipe for structural problems",
	Long: `Lint renders the recipe and runs structural checks: dependency
specifier syntax, test import consistency, placeholder versions and
missing metadata. Errors fail the command; warnings only fail it with
--strict.`,
	Args: cobra.ExactArgs(1),
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
	lintCmd.Flags().BoolVar(&lintStrict, "strict", false, "treat warnings as errors")
}

func runLint(cmd *cobra.Command, args []string) error {
	recipe, err := render.LoadRecipe(args[0], renderContext())
	if err != nil {
		return err
	}

	findings := lint.Run(recipe)

	if IsJSONOutput() {
		if findings == nil {
			findings = []lint.Finding{}
		}
		if err := printJSON(findings); err != nil {
			return err
		}
	} else if len(findings) == 0 {
		fmt.Printf("%s: no findings\n", recipe.Package.Name)
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Severity", "Code", "Message")
		for _, finding := range findings {
			table.Append(string(finding.Severity), finding.Code, finding.Message)
		}
		table.Render()
	}

	if lint.HasErrors(findings) {
		return fmt.Errorf("lint found errors")
	}
	if lintStrict && len(findings) > 0 {
		return fmt.Errorf("lint found warnings (strict mode)")
	}
	return nil
}
