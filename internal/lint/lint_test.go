package lint

import (
	"testing"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

func cleanRecipe(t *testing.T) *models.Recipe {
	t.Helper()
	return &models.Recipe{
		Package: models.PackageInfo{Name: "q2-amrfinderplus", Version: "2024.5.0"},
		Source:  models.SourceInfo{Path: t.TempDir()},
		Build:   models.BuildInfo{Script: models.DefaultBuildScript},
		Requirements: models.Requirements{
			Host: []string{"python", "setuptools"},
			Run:  []string{"python", "qiime2 2024.5.*"},
		},
		Test: models.TestSpec{
			Requires: []string{"coverage"},
			Imports:  []string{"q2_amrfinderplus"},
			Commands: []string{"pytest --pyargs q2_amrfinderplus"},
		},
		About: models.AboutInfo{
			Home:    "https://github.com/bokulich-lab/q2-amrfinderplus",
			License: "BSD-3-Clause",
		},
	}
}

func findingCodes(findings []Finding) map[string]Severity {
	codes := make(map[string]Severity, len(findings))
	for _, f := range findings {
		codes[f.Code] = f.Severity
	}
	return codes
}

func TestRunCleanRecipe(t *testing.T) {
	findings := Run(cleanRecipe(t))
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %+v", findings)
	}
}

func TestRunPlaceholderVersion(t *testing.T) {
	recipe := cleanRecipe(t)
	recipe.Package.Version = models.PlaceholderVersion

	codes := findingCodes(Run(recipe))
	if codes["package-version-placeholder"] != SeverityWarning {
		t.Errorf("expected placeholder warning, got %v", codes)
	}
	if HasErrors(Run(recipe)) {
		t.Error("placeholder version is a warning, not an error")
	}
}

func TestRunDuplicateRequirement(t *testing.T) {
	recipe := cleanRecipe(t)
	recipe.Requirements.Run = append(recipe.Requirements.Run, "python >=3.8")

	codes := findingCodes(Run(recipe))
	if codes["requirement-duplicate"] != SeverityError {
		t.Errorf("expected duplicate error, got %v", codes)
	}
}

func TestRunSharedHostAndRunPackage(t *testing.T) {
	// python appearing in both host and run is normal, not a duplicate
	findings := Run(cleanRecipe(t))
	for _, f := range findings {
		if f.Code == "requirement-duplicate" {
			t.Errorf("cross-section overlap flagged as duplicate: %+v", f)
		}
	}
}

func TestRunInvalidRequirement(t *testing.T) {
	recipe := cleanRecipe(t)
	recipe.Requirements.Host = append(recipe.Requirements.Host, "pkg one two three")

	codes := findingCodes(Run(recipe))
	if codes["requirement-invalid"] != SeverityError {
		t.Errorf("expected invalid-requirement error, got %v", codes)
	}
}

func TestRunUnreachableSource(t *testing.T) {
	recipe := cleanRecipe(t)
	recipe.Source.Path = "/nonexistent/source/tree"

	codes := findingCodes(Run(recipe))
	if codes["source-path-unreachable"] != SeverityWarning {
		t.Errorf("expected unreachable-source warning, got %v", codes)
	}
}

func TestRunEmptyTest(t *testing.T) {
	recipe := cleanRecipe(t)
	recipe.Test = models.TestSpec{}

	codes := findingCodes(Run(recipe))
	if codes["test-empty"] != SeverityWarning {
		t.Errorf("expected empty-test warning, got %v", codes)
	}
}

func TestRunForeignImport(t *testing.T) {
	recipe := cleanRecipe(t)
	recipe.Test.Imports = append(recipe.Test.Imports, "numpy")

	codes := findingCodes(Run(recipe))
	if codes["test-import-foreign"] != SeverityError {
		t.Errorf("expected foreign-import error, got %v", codes)
	}
}

func TestRunPluginNamespaceImportAllowed(t *testing.T) {
	recipe := cleanRecipe(t)
	recipe.Test.Imports = append(recipe.Test.Imports, "qiime2.plugins.amrfinderplus")

	for _, f := range Run(recipe) {
		if f.Code == "test-import-foreign" {
			t.Errorf("plugin namespace import flagged: %+v", f)
		}
	}
}

func TestRunUndeclaredPyargsModule(t *testing.T) {
	recipe := cleanRecipe(t)
	recipe.Test.Commands = []string{"pytest --pyargs q2_other"}

	codes := findingCodes(Run(recipe))
	if codes["test-command-undeclared-module"] != SeverityError {
		t.Errorf("expected undeclared-module error, got %v", codes)
	}
}

func TestRunAboutWarnings(t *testing.T) {
	recipe := cleanRecipe(t)
	recipe.About = models.AboutInfo{}

	codes := findingCodes(Run(recipe))
	if codes["about-license-missing"] != SeverityWarning {
		t.Errorf("expected license warning, got %v", codes)
	}
	if codes["about-home-missing"] != SeverityWarning {
		t.Errorf("expected home warning, got %v", codes)
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Finding{{SeverityWarning, "w", "warning"}}) {
		t.Error("warnings alone should not count as errors")
	}
	if !HasErrors([]Finding{{SeverityWarning, "w", "warning"}, {SeverityError, "e", "error"}}) {
		t.Error("expected HasErrors true when an error finding exists")
	}
}
