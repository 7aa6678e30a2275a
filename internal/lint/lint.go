// Package lint performs structural checks over a rendered recipe.
// Findings are advisory records, not errors: callers decide whether
// warnings fail the run.
package lint

import (
	"fmt"
	"os"
	"strings"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

// Severity classifies a finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one lint result
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Run executes all checks and returns the collected findings
func Run(recipe *models.Recipe) []Finding {
	var findings []Finding

	findings = append(findings, checkPackage(recipe)...)
	findings = append(findings, checkRequirements(recipe)...)
	findings = append(findings, checkSource(recipe)...)
	findings = append(findings, checkTest(recipe)...)
	findings = append(findings, checkAbout(recipe)...)

	return findings
}

// HasErrors reports whether any finding is an error
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

func checkPackage(recipe *models.Recipe) []Finding {
	var findings []Finding

	if recipe.Package.Name == "" {
		findings = append(findings, Finding{SeverityError, "package-name-missing",
			"package.name is required"})
	}
	if recipe.Package.Version == "" {
		findings = append(findings, Finding{SeverityError, "package-version-empty",
			"package.version resolved to an empty string"})
	} else if recipe.Package.Version == models.PlaceholderVersion {
		findings = append(findings, Finding{SeverityWarning, "package-version-placeholder",
			fmt.Sprintf("package.version is the %q fallback; no version data loader matched", models.PlaceholderVersion)})
	}

	return findings
}

func checkRequirements(recipe *models.Recipe) []Finding {
	var findings []Finding

	sections := []struct {
		name    string
		entries []string
	}{
		{"host", recipe.Requirements.Host},
		{"run", recipe.Requirements.Run},
	}

	for _, section := range sections {
		inSection := make(map[string]bool)
		for _, entry := range section.entries {
			spec, err := models.ParseSpec(entry)
			if err != nil {
				findings = append(findings, Finding{SeverityError, "requirement-invalid",
					fmt.Sprintf("requirements.%s entry %q: %v", section.name, entry, err)})
				continue
			}
			if inSection[spec.Name] {
				findings = append(findings, Finding{SeverityError, "requirement-duplicate",
					fmt.Sprintf("requirements.%s lists %q more than once", section.name, spec.Name)})
			}
			inSection[spec.Name] = true
		}
	}

	return findings
}

func checkSource(recipe *models.Recipe) []Finding {
	var findings []Finding

	if recipe.Source.Path == "" {
		findings = append(findings, Finding{SeverityError, "source-path-missing",
			"source.path is required"})
		return findings
	}

	if info, err := os.Stat(recipe.Source.Path); err != nil || !info.IsDir() {
		findings = append(findings, Finding{SeverityWarning, "source-path-unreachable",
			fmt.Sprintf("source.path %q is not an accessible directory", recipe.Source.Path)})
	}

	return findings
}

func checkTest(recipe *models.Recipe) []Finding {
	var findings []Finding

	if len(recipe.Test.Commands) == 0 && len(recipe.Test.Imports) == 0 {
		findings = append(findings, Finding{SeverityWarning, "test-empty",
			"recipe declares neither test.commands nor test.imports"})
		return findings
	}

	for _, entry := range recipe.Test.Requires {
		if _, err := models.ParseSpec(entry); err != nil {
			findings = append(findings, Finding{SeverityError, "test-requirement-invalid",
				fmt.Sprintf("test.requires entry %q: %v", entry, err)})
		}
	}

	// Imports must be modules this package installs: either the package's
	// own import name or its registration under the framework plugin
	// namespace (qiime2.plugins.<action module>).
	importName := recipe.ImportName()
	declared := make(map[string]bool, len(recipe.Test.Imports))
	for _, imp := range recipe.Test.Imports {
		declared[imp] = true
		if imp == importName || strings.HasPrefix(imp, importName+".") {
			continue
		}
		if strings.HasPrefix(imp, "qiime2.plugins.") {
			continue
		}
		findings = append(findings, Finding{SeverityError, "test-import-foreign",
			fmt.Sprintf("test.imports entry %q is not provided by package %q", imp, recipe.Package.Name)})
	}

	// Test commands that run a module's own suite must target a declared import
	for _, command := range recipe.Test.Commands {
		target := pyargsTarget(command)
		if target == "" {
			continue
		}
		if !declared[target] {
			findings = append(findings, Finding{SeverityError, "test-command-undeclared-module",
				fmt.Sprintf("test command targets module %q which is not in test.imports", target)})
		}
	}

	return findings
}

func checkAbout(recipe *models.Recipe) []Finding {
	var findings []Finding

	if recipe.About.License == "" {
		findings = append(findings, Finding{SeverityWarning, "about-license-missing",
			"about.license is empty"})
	}
	if recipe.About.Home == "" {
		findings = append(findings, Finding{SeverityWarning, "about-home-missing",
			"about.home is empty"})
	}

	return findings
}

// pyargsTarget extracts the module name of a "--pyargs <module>" test
// invocation, or "" when the command does not use that form.
func pyargsTarget(command string) string {
	fields := strings.Fields(command)
	for i, field := range fields {
		if field == "--pyargs" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}
