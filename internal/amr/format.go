// Package amr implements the AMRFinderPlus annotation file formats the
// packaged plugin produces: per-sample TSV annotation tables and the
// directory layouts they live in.
package amr

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// AnnotationSuffix is the canonical annotation file name suffix
const AnnotationSuffix = "_amr_annotations.tsv"

// annotationHeader is the full AMRFinderPlus output header. The
// coordinate columns (Contig id, Start, Stop, Strand) only appear when
// the tool ran against contigs rather than protein input.
var annotationHeader = []string{
	"Protein identifier",
	"Contig id",
	"Start",
	"Stop",
	"Strand",
	"Gene symbol",
	"Sequence name",
	"Scope",
	"Element type",
	"Element subtype",
	"Class",
	"Subclass",
	"Method",
	"Target length",
	"Reference sequence length",
	"% Coverage of reference sequence",
	"% Identity to reference sequence",
	"Alignment length",
	"Accession of closest sequence",
	"Name of closest sequence",
	"HMM id",
	"HMM description",
}

var coordinateColumns = map[string]bool{
	"Contig id": true,
	"Start":     true,
	"Stop":      true,
	"Strand":    true,
}

// headerWithoutCoordinates returns the 18-column protein-input variant
func headerWithoutCoordinates() []string {
	header := make([]string, 0, len(annotationHeader)-len(coordinateColumns))
	for _, col := range annotationHeader {
		if !coordinateColumns[col] {
			header = append(header, col)
		}
	}
	return header
}

// ValidationError reports a malformed annotation file
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateAnnotationFile checks that a file carries a valid
// AMRFinderPlus annotation header. An empty file is valid: a sample
// with no hits produces one.
func ValidateAnnotationFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open annotation file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read annotation file: %w", err)
		}
		return nil // empty file
	}

	found := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
	if headerEqual(found, annotationHeader) || headerEqual(found, headerWithoutCoordinates()) {
		return nil
	}

	return &ValidationError{
		Path: path,
		Message: fmt.Sprintf(
			"header line does not match the AMRFinderPlus annotation format; "+
				"must consist of the following values: %s (Contig id, Start, Stop and Strand are optional); found instead: %s",
			strings.Join(annotationHeader, ", "),
			strings.Join(found, ", ")),
	}
}

// AnnotationFile is one discovered annotation table
type AnnotationFile struct {
	Path string
	ID   string // file name with the annotation suffix stripped
	Dir  string // per-sample subdirectory name, "" for flat layouts
}

// FindAnnotationFiles discovers annotation files directly in root or
// one level down in per-sample subdirectories.
func FindAnnotationFiles(root string) ([]AnnotationFile, error) {
	var files []AnnotationFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// root itself plus one level of sample directories
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			if rel != "." && strings.Contains(rel, string(filepath.Separator)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), AnnotationSuffix) {
			return nil
		}

		dir := ""
		if parent := filepath.Dir(path); parent != filepath.Clean(root) {
			dir = filepath.Base(parent)
		}
		files = append(files, AnnotationFile{
			Path: path,
			ID:   strings.TrimSuffix(d.Name(), AnnotationSuffix),
			Dir:  dir,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan annotations directory: %w", err)
	}

	return files, nil
}

// ValidateAnnotationsDir validates every annotation file under root.
// The directory must contain at least one annotation file.
func ValidateAnnotationsDir(root string) error {
	files, err := FindAnnotationFiles(root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return &ValidationError{Path: root, Message: "no *" + AnnotationSuffix + " files found"}
	}
	for _, file := range files {
		if err := ValidateAnnotationFile(file.Path); err != nil {
			return err
		}
	}
	return nil
}

// AnnotationsPath builds the canonical path for an annotation file,
// optionally nested in a per-sample directory.
func AnnotationsPath(base, id, dirName string) string {
	name := id + AnnotationSuffix
	if dirName != "" {
		return filepath.Join(base, dirName, name)
	}
	return filepath.Join(base, name)
}

func headerEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
