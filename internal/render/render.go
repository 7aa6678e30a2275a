// Package render expands the Jinja-style templating used by build
// recipes ({{ var }} expressions and {% set %} statements) before the
// document is parsed as YAML.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

var (
	exprRe = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)
	setRe  = regexp.MustCompile(`^\s*\{%\s*set\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+?)\s*%\}\s*$`)
	stmtRe = regexp.MustCompile(`\{%.*?%\}`)
)

// Context supplies template variables and the source tree used by
// version data loaders.
type Context struct {
	Vars      map[string]string
	SourceDir string
}

// Renderer expands template expressions in recipe documents
type Renderer struct {
	vars      map[string]string
	sourceDir string
}

// New creates a renderer with a copy of the context variables
func New(ctx Context) *Renderer {
	vars := make(map[string]string, len(ctx.Vars))
	for k, v := range ctx.Vars {
		vars[k] = v
	}
	return &Renderer{vars: vars, sourceDir: ctx.SourceDir}
}

// Render expands all template constructs. The output contains no
// unexpanded {{ }} or {% %} tokens; unknown variables are errors.
func (r *Renderer) Render(data []byte) ([]byte, error) {
	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		// {% set name = expr %} assigns a variable and emits nothing
		if m := setRe.FindStringSubmatch(line); m != nil {
			value, err := r.eval(m[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			r.vars[m[1]] = value
			continue
		}

		var evalErr error
		rendered := exprRe.ReplaceAllStringFunc(line, func(match string) string {
			expr := exprRe.FindStringSubmatch(match)[1]
			value, err := r.eval(expr)
			if err != nil && evalErr == nil {
				evalErr = fmt.Errorf("line %d: %w", i+1, err)
			}
			return value
		})
		if evalErr != nil {
			return nil, evalErr
		}
		if stmtRe.MatchString(rendered) {
			return nil, fmt.Errorf("line %d: unsupported template statement", i+1)
		}
		out = append(out, rendered)
	}

	return []byte(strings.Join(out, "\n")), nil
}

// RenderFile renders a recipe file from disk
func (r *Renderer) RenderFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	return r.Render(data)
}

// eval evaluates a template expression. Supported forms:
//
//	qiime2_epoch                          variable lookup
//	'literal' / "literal"                 string literal
//	load_setup_py_data().version          version data loader
//	a or b or 'fallback'                  first non-empty term wins
func (r *Renderer) eval(expr string) (string, error) {
	terms := strings.Split(expr, " or ")
	for i, term := range terms {
		value, err := r.evalTerm(strings.TrimSpace(term))
		if err != nil {
			// Later fallback terms may still resolve
			if i < len(terms)-1 {
				continue
			}
			return "", err
		}
		if value != "" {
			return value, nil
		}
	}
	return "", fmt.Errorf("expression %q resolved to an empty value", expr)
}

func (r *Renderer) evalTerm(term string) (string, error) {
	if len(term) >= 2 {
		if (term[0] == '\'' && term[len(term)-1] == '\'') ||
			(term[0] == '"' && term[len(term)-1] == '"') {
			return term[1 : len(term)-1], nil
		}
	}

	if strings.HasPrefix(term, "load_setup_py_data()") {
		return r.evalDataLoader(term)
	}

	if value, ok := r.vars[term]; ok {
		return value, nil
	}
	return "", fmt.Errorf("undefined template variable %q", term)
}

func (r *Renderer) evalDataLoader(term string) (string, error) {
	rest := strings.TrimPrefix(term, "load_setup_py_data()")
	switch {
	case rest == ".version", rest == `.get("version")`, rest == `.get('version')`:
		return ResolveVersion(r.sourceDir), nil
	default:
		return "", fmt.Errorf("unsupported data loader accessor %q", term)
	}
}

// LoadRecipe renders and parses a recipe file. When the document
// declares no version at all, the placeholder literal is substituted
// so the version is never empty.
func LoadRecipe(path string, ctx Context) (*models.Recipe, error) {
	if ctx.SourceDir == "" {
		ctx.SourceDir = filepath.Dir(path)
	}

	rendered, err := New(ctx).RenderFile(path)
	if err != nil {
		return nil, err
	}

	recipe, err := models.ParseRecipe(rendered)
	if err != nil {
		return nil, err
	}

	if recipe.Package.Version == "" {
		recipe.Package.Version = models.PlaceholderVersion
	}

	// source.path is relative to the recipe file
	if !filepath.IsAbs(recipe.Source.Path) {
		recipe.Source.Path = filepath.Join(filepath.Dir(path), recipe.Source.Path)
	}

	return recipe, nil
}
