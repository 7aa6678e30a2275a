package models

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBuildScript is used when a recipe omits build.script
const DefaultBuildScript = "make install"

// PlaceholderVersion is emitted when no version data loader yields a value
const PlaceholderVersion = "placehold"

// Recipe represents a parsed build recipe for a plugin package
type Recipe struct {
	Package      PackageInfo  `yaml:"package"`
	Source       SourceInfo   `yaml:"source"`
	Build        BuildInfo    `yaml:"build"`
	Requirements Requirements `yaml:"requirements"`
	Test         TestSpec     `yaml:"test"`
	About        AboutInfo    `yaml:"about"`
}

// PackageInfo identifies the package being built
type PackageInfo struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SourceInfo points at the source tree the build script runs in
type SourceInfo struct {
	Path string `yaml:"path"`
}

// BuildInfo describes how the package is built
type BuildInfo struct {
	Number int    `yaml:"number"`
	Script string `yaml:"script"`
	NoArch string `yaml:"noarch,omitempty"` // "python" for pure-python packages
}

// Requirements lists host (build-time) and run (runtime) dependencies
type Requirements struct {
	Host []string `yaml:"host"`
	Run  []string `yaml:"run"`
}

// TestSpec describes the delegated test phase
type TestSpec struct {
	Requires []string `yaml:"requires"`
	Imports  []string `yaml:"imports"`
	Commands []string `yaml:"commands"`
}

// AboutInfo holds static package metadata
type AboutInfo struct {
	Home          string `yaml:"home"`
	License       string `yaml:"license"`
	LicenseFamily string `yaml:"license_family"`
}

// ParseRecipe parses a rendered recipe document and applies defaults
func ParseRecipe(data []byte) (*Recipe, error) {
	var recipe Recipe
	if err := yaml.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("failed to parse recipe: %w", err)
	}

	// Set defaults
	if recipe.Build.Script == "" {
		recipe.Build.Script = DefaultBuildScript
	}
	if recipe.Source.Path == "" {
		recipe.Source.Path = "."
	}

	return &recipe, nil
}

// LoadRecipe reads and parses an already-rendered recipe file
func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	return ParseRecipe(data)
}

// Validate performs structural validation of the recipe.
// Deeper consistency checks live in the lint package.
func (r *Recipe) Validate() error {
	if r.Package.Name == "" {
		return fmt.Errorf("package.name is required")
	}
	if !validPackageName(r.Package.Name) {
		return fmt.Errorf("package.name %q contains invalid characters", r.Package.Name)
	}
	if r.Package.Version == "" {
		return fmt.Errorf("package.version is empty; rendering must resolve a version or fall back to %q", PlaceholderVersion)
	}

	for _, entry := range append(append([]string{}, r.Requirements.Host...), r.Requirements.Run...) {
		if _, err := ParseSpec(entry); err != nil {
			return fmt.Errorf("invalid requirement %q: %w", entry, err)
		}
	}
	for _, entry := range r.Test.Requires {
		if _, err := ParseSpec(entry); err != nil {
			return fmt.Errorf("invalid test requirement %q: %w", entry, err)
		}
	}

	return nil
}

// HostSpecs returns the parsed host requirements
func (r *Recipe) HostSpecs() ([]PackageSpec, error) {
	return parseSpecs(r.Requirements.Host)
}

// RunSpecs returns the parsed run requirements
func (r *Recipe) RunSpecs() ([]PackageSpec, error) {
	return parseSpecs(r.Requirements.Run)
}

// TestRequireSpecs returns the parsed test requirements
func (r *Recipe) TestRequireSpecs() ([]PackageSpec, error) {
	return parseSpecs(r.Test.Requires)
}

// ImportName returns the python module name the package installs,
// derived from the package name (dashes become underscores, the
// conda-name prefix "q2-" maps to the "q2_" module prefix).
func (r *Recipe) ImportName() string {
	return strings.ReplaceAll(r.Package.Name, "-", "_")
}

func parseSpecs(entries []string) ([]PackageSpec, error) {
	specs := make([]PackageSpec, 0, len(entries))
	for _, entry := range entries {
		spec, err := ParseSpec(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid specifier %q: %w", entry, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func validPackageName(name string) bool {
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}
