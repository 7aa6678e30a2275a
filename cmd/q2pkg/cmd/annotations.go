package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bokulich-lab/q2pkg/internal/amr"
)

var annotationsOut string

var annotationsCmd = &cobra.Command{
	Use:   "annotations",
	Short: "Work with AMRFinderPlus annotation tables",
	Long: `Commands for validating and merging the per-sample annotation TSV
tables produced by the packaged plugin.`,
}

var annotationsValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate annotation files",
	Long: `Validate checks a single annotation TSV or a directory of them
(flat or per-sample subdirectories) against the AMRFinderPlus header
format. Empty files are valid: a sample with no hits produces one.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotationsValidate,
}

var annotationsMergeCmd = &cobra.Command{
	Use:   "merge <dir>",
	Short: "Merge annotation tables into one metadata table",
	Long: `Merge combines every annotation file under the directory into one
table keyed by Sample/MAG_ID, written as TSV to stdout or --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotationsMerge,
}

func init() {
	rootCmd.AddCommand(annotationsCmd)
	annotationsCmd.AddCommand(annotationsValidateCmd)
	annotationsCmd.AddCommand(annotationsMergeCmd)

	annotationsMergeCmd.Flags().StringVarP(&annotationsOut, "out", "o", "", "output file (default stdout)")
}

func runAnnotationsValidate(cmd *cobra.Command, args []string) error {
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}

	if info.IsDir() {
		if err := amr.ValidateAnnotationsDir(args[0]); err != nil {
			return err
		}
	} else {
		if err := amr.ValidateAnnotationFile(args[0]); err != nil {
			return err
		}
	}

	fmt.Printf("%s: valid\n", args[0])
	return nil
}

func runAnnotationsMerge(cmd *cobra.Command, args []string) error {
	table, err := amr.MergeAnnotations(args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if annotationsOut != "" {
		f, err := os.Create(annotationsOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := amr.WriteTSV(out, table); err != nil {
		return err
	}
	if annotationsOut != "" {
		fmt.Fprintf(os.Stderr, "Merged %d rows into %s\n", len(table.Rows), annotationsOut)
	}
	return nil
}
