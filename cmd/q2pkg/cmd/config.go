package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bokulich-lab/q2pkg/pkg/hardware"
)

var (
	configEnvironment string
	configOutput      string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management and recommendations",
	Long:  `Commands for generating build configuration based on hardware capabilities.`,
}

var configRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Generate recommended build configuration",
	Long: `Analyzes system hardware (CPU, RAM) and recommends build parallelism
and work directory settings. The deployment environment (development,
production) adjusts how much of the machine a build may claim.`,
	RunE: runConfigRecommend,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configRecommendCmd)

	configRecommendCmd.Flags().StringVarP(&configEnvironment, "environment", "e", "development",
		"Deployment environment: development, production")
	configRecommendCmd.Flags().StringVarP(&configOutput, "format", "f", "text",
		"Output format: text, json, yaml, bash")
}

// BuildConfig holds the recommended build settings
type BuildConfig struct {
	MakeJobs int    `json:"make_jobs" yaml:"make_jobs"`
	WorkDir  string `json:"work_dir" yaml:"work_dir"`
}

// ConfigRecommendation pairs detected hardware with recommendations
type ConfigRecommendation struct {
	Hardware        *hardware.Info `json:"hardware" yaml:"hardware"`
	Class           string         `json:"class" yaml:"class"`
	Recommendations BuildConfig    `json:"recommendations" yaml:"recommendations"`
	Rationale       string         `json:"rationale" yaml:"rationale"`
}

func runConfigRecommend(cmd *cobra.Command, args []string) error {
	info, err := hardware.Detect()
	if err != nil {
		return fmt.Errorf("failed to detect hardware: %w", err)
	}

	class := info.Classify()
	config := calculateRecommendations(info, class, configEnvironment)
	rationale := fmt.Sprintf(
		"Based on %d CPU threads and %s on a %s-class host: recommended -j%d (%s environment)",
		info.CPUThreads, hardware.FormatRAM(info.RAMBytes), class, config.MakeJobs, configEnvironment)

	recommendation := ConfigRecommendation{
		Hardware:        info,
		Class:           string(class),
		Recommendations: config,
		Rationale:       rationale,
	}

	return outputRecommendation(recommendation, configOutput)
}

func calculateRecommendations(info *hardware.Info, class hardware.Class, environment string) BuildConfig {
	// Production builds may claim half the machine, development a quarter
	jobs := info.CPUThreads / 4
	if environment == "production" {
		jobs = info.CPUThreads / 2
	}

	limit := maxJobsLimit(class)
	if jobs > limit {
		jobs = limit
	}
	if jobs < 1 {
		jobs = 1
	}

	workDir := filepath.Join(os.TempDir(), "q2pkg")
	return BuildConfig{MakeJobs: jobs, WorkDir: workDir}
}

func maxJobsLimit(class hardware.Class) int {
	switch class {
	case hardware.ClassLaptop:
		return 4
	case hardware.ClassDesktop:
		return 8
	default:
		return 16
	}
}

func outputRecommendation(rec ConfigRecommendation, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rec)

	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		return encoder.Encode(rec)

	case "bash":
		fmt.Println("# Build configuration recommendations")
		fmt.Printf("export MAKEFLAGS=-j%d\n", rec.Recommendations.MakeJobs)
		fmt.Printf("export Q2PKG_WORK_DIR=%s\n", rec.Recommendations.WorkDir)
		fmt.Println()
		fmt.Printf("# %s\n", rec.Rationale)
		return nil

	default: // text
		fmt.Println("Hardware:")
		fmt.Printf("  CPU: %s (%d threads)\n", rec.Hardware.CPUModel, rec.Hardware.CPUThreads)
		fmt.Printf("  RAM: %s\n", hardware.FormatRAM(rec.Hardware.RAMBytes))
		fmt.Printf("  Class: %s\n", rec.Class)
		fmt.Printf("  OS: %s/%s\n", rec.Hardware.OS, rec.Hardware.Arch)
		fmt.Println()
		fmt.Println("Recommended build configuration:")
		fmt.Printf("  make jobs: %d\n", rec.Recommendations.MakeJobs)
		fmt.Printf("  work dir:  %s\n", rec.Recommendations.WorkDir)
		fmt.Println()
		fmt.Println("Rationale:")
		fmt.Printf("  %s\n", rec.Rationale)
		return nil
	}
}
