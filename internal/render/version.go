package render

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

var (
	setupVersionRe   = regexp.MustCompile(`version\s*=\s*["']([^"']+)["']`)
	pyprojectTableRe = regexp.MustCompile(`^\s*\[(.+)\]\s*$`)
	versionFileRe    = regexp.MustCompile(`__version__\s*=\s*["']([^"']+)["']`)
)

// ResolveVersion resolves the package version from the source tree the
// way load_setup_py_data() would: setup.py first, then pyproject.toml,
// then a _version.py module. When nothing yields a value the literal
// placeholder is returned so rendering always produces a version.
func ResolveVersion(sourceDir string) string {
	if sourceDir == "" {
		return models.PlaceholderVersion
	}

	if v := versionFromSetupPy(filepath.Join(sourceDir, "setup.py")); v != "" {
		return v
	}
	if v := versionFromPyproject(filepath.Join(sourceDir, "pyproject.toml")); v != "" {
		return v
	}
	if v := versionFromVersionModule(sourceDir); v != "" {
		return v
	}

	return models.PlaceholderVersion
}

func versionFromSetupPy(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		if m := setupVersionRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func versionFromPyproject(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	table := ""
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if m := pyprojectTableRe.FindStringSubmatch(line); m != nil {
			table = m[1]
			continue
		}
		// Only the [project] table carries the package version
		if table != "project" {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "version") {
			if m := setupVersionRe.FindStringSubmatch(trimmed); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

func versionFromVersionModule(sourceDir string) string {
	matches, err := filepath.Glob(filepath.Join(sourceDir, "*", "_version.py"))
	if err != nil {
		return ""
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if m := versionFileRe.FindSubmatch(data); m != nil {
			return string(m[1])
		}
	}
	return ""
}
