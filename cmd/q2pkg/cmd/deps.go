package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bokulich-lab/q2pkg/internal/render"
	"github.com/bokulich-lab/q2pkg/pkg/models"
)

var depsSection string

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Inspect recipe dependencies",
	Long:  `Commands for listing and checking the dependency specifiers a recipe declares.`,
}

var depsListCmd = &cobra.Command{
	Use:   "list <recipe.yaml>",
	Short: "List declared dependencies",
	Args:  cobra.ExactArgs(1),
	RunE:  runDepsList,
}

var depsCheckCmd = &cobra.Command{
	Use:   "check <recipe.yaml> <package> <version>",
	Short: "Check a version against a recipe's pin for a package",
	Long: `Check looks up the named package across the recipe's requirement
sections and reports whether the given version satisfies each pin.`,
	Args: cobra.ExactArgs(3),
	RunE: runDepsCheck,
}

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.AddCommand(depsListCmd)
	depsCmd.AddCommand(depsCheckCmd)

	depsListCmd.Flags().StringVar(&depsSection, "section", "", "only this section: host, run or test")
}

type depRow struct {
	Section string             `json:"section"`
	Spec    models.PackageSpec `json:"spec"`
}

func runDepsList(cmd *cobra.Command, args []string) error {
	recipe, err := render.LoadRecipe(args[0], renderContext())
	if err != nil {
		return err
	}

	rows, err := collectDeps(recipe)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(rows)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Section", "Package", "Pin", "Kind")
	for _, row := range rows {
		pin := row.Spec.Pin
		if pin == "" {
			pin = "-"
		}
		table.Append(row.Section, row.Spec.Name, pin, string(row.Spec.Kind))
	}
	table.Render()
	return nil
}

func runDepsCheck(cmd *cobra.Command, args []string) error {
	recipe, err := render.LoadRecipe(args[0], renderContext())
	if err != nil {
		return err
	}
	name, version := args[1], args[2]

	rows, err := collectDeps(recipe)
	if err != nil {
		return err
	}

	found := false
	satisfied := true
	for _, row := range rows {
		if row.Spec.Name != name {
			continue
		}
		found = true
		ok := row.Spec.Matches(version)
		if !ok {
			satisfied = false
		}
		if !IsJSONOutput() {
			verdict := "satisfies"
			if !ok {
				verdict = "VIOLATES"
			}
			fmt.Printf("%s %s %s %q (%s)\n", name, version, verdict, row.Spec.String(), row.Section)
		}
	}

	if !found {
		return fmt.Errorf("package %q is not a declared dependency of %s", name, recipe.Package.Name)
	}
	if IsJSONOutput() {
		return printJSON(map[string]interface{}{"package": name, "version": version, "satisfied": satisfied})
	}
	if !satisfied {
		return fmt.Errorf("version %s does not satisfy all pins for %q", version, name)
	}
	return nil
}

func collectDeps(recipe *models.Recipe) ([]depRow, error) {
	var rows []depRow

	sections := []struct {
		name    string
		entries []string
	}{
		{"host", recipe.Requirements.Host},
		{"run", recipe.Requirements.Run},
		{"test", recipe.Test.Requires},
	}

	for _, section := range sections {
		if depsSection != "" && depsSection != section.name {
			continue
		}
		for _, entry := range section.entries {
			spec, err := models.ParseSpec(entry)
			if err != nil {
				return nil, fmt.Errorf("requirements.%s entry %q: %w", section.name, entry, err)
			}
			rows = append(rows, depRow{Section: section.name, Spec: spec})
		}
	}
	return rows, nil
}
