package models

import (
	"strings"
	"testing"
)

const sampleRecipe = `
package:
  name: q2-amrfinderplus
  version: "2024.5.0"

source:
  path: ../..

build:
  script: make install
  noarch: python

requirements:
  host:
    - python
    - setuptools
    - versioningit
  run:
    - python
    - qiime2 2024.5.*
    - q2-types 2024.5.*
    - ncbi-amrfinderplus =3.12.8

test:
  requires:
    - coverage
    - pytest-cov
  imports:
    - q2_amrfinderplus
  commands:
    - pytest --pyargs q2_amrfinderplus

about:
  home: https://github.com/bokulich-lab/q2-amrfinderplus
  license: BSD-3-Clause
  license_family: BSD
`

func TestParseRecipe(t *testing.T) {
	recipe, err := ParseRecipe([]byte(sampleRecipe))
	if err != nil {
		t.Fatalf("ParseRecipe failed: %v", err)
	}

	if recipe.Package.Name != "q2-amrfinderplus" {
		t.Errorf("package name = %q", recipe.Package.Name)
	}
	if recipe.Package.Version != "2024.5.0" {
		t.Errorf("package version = %q", recipe.Package.Version)
	}
	if recipe.Source.Path != "../.." {
		t.Errorf("source path = %q", recipe.Source.Path)
	}
	if recipe.Build.Script != "make install" {
		t.Errorf("build script = %q", recipe.Build.Script)
	}
	if recipe.Build.NoArch != "python" {
		t.Errorf("noarch = %q", recipe.Build.NoArch)
	}
	if len(recipe.Requirements.Run) != 4 {
		t.Errorf("expected 4 run requirements, got %d", len(recipe.Requirements.Run))
	}
	if len(recipe.Test.Commands) != 1 {
		t.Errorf("expected 1 test command, got %d", len(recipe.Test.Commands))
	}

	if err := recipe.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestParseRecipeDefaults(t *testing.T) {
	recipe, err := ParseRecipe([]byte("package:\n  name: q2-demo\n  version: \"1.0\"\n"))
	if err != nil {
		t.Fatalf("ParseRecipe failed: %v", err)
	}
	if recipe.Build.Script != DefaultBuildScript {
		t.Errorf("build script default = %q, want %q", recipe.Build.Script, DefaultBuildScript)
	}
	if recipe.Source.Path != "." {
		t.Errorf("source path default = %q, want \".\"", recipe.Source.Path)
	}
}

func TestValidateRejectsBadRecipes(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			"missing name",
			"package:\n  version: \"1.0\"\n",
			"package.name is required",
		},
		{
			"invalid name",
			"package:\n  name: Q2 Demo\n  version: \"1.0\"\n",
			"invalid characters",
		},
		{
			"missing version",
			"package:\n  name: q2-demo\n",
			"package.version is empty",
		},
		{
			"bad requirement",
			"package:\n  name: q2-demo\n  version: \"1.0\"\nrequirements:\n  run:\n    - \"pkg one two three\"\n",
			"invalid requirement",
		},
	}

	for _, tt := range tests {
		recipe, err := ParseRecipe([]byte(tt.yaml))
		if err != nil {
			t.Fatalf("%s: ParseRecipe failed: %v", tt.name, err)
		}
		err = recipe.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantMsg) {
			t.Errorf("%s: error %q does not contain %q", tt.name, err.Error(), tt.wantMsg)
		}
	}
}

func TestRunSpecs(t *testing.T) {
	recipe, err := ParseRecipe([]byte(sampleRecipe))
	if err != nil {
		t.Fatalf("ParseRecipe failed: %v", err)
	}
	specs, err := recipe.RunSpecs()
	if err != nil {
		t.Fatalf("RunSpecs failed: %v", err)
	}
	if len(specs) != 4 {
		t.Fatalf("expected 4 specs, got %d", len(specs))
	}
	if specs[1].Name != "qiime2" || specs[1].Kind != PinWildcard {
		t.Errorf("unexpected qiime2 spec: %+v", specs[1])
	}
	if specs[3].Name != "ncbi-amrfinderplus" || specs[3].Kind != PinExact {
		t.Errorf("unexpected amrfinderplus spec: %+v", specs[3])
	}
}

func TestImportName(t *testing.T) {
	recipe := &Recipe{Package: PackageInfo{Name: "q2-amrfinderplus"}}
	if got := recipe.ImportName(); got != "q2_amrfinderplus" {
		t.Errorf("ImportName() = %q, want q2_amrfinderplus", got)
	}
}
