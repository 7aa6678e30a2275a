package models

import (
	"fmt"
	"strconv"
	"strings"
)

// PinKind categorizes a version constraint
type PinKind string

const (
	PinNone     PinKind = "none"     // bare name, any version
	PinExact    PinKind = "exact"    // 2024.5 or =2024.5
	PinWildcard PinKind = "wildcard" // 2024.5.* (epoch pin)
	PinBounded  PinKind = "bounded"  // >=1.2, <2.0, or comma-joined bounds
)

// PackageSpec is a parsed dependency specifier: "name [version [build]]"
type PackageSpec struct {
	Name  string  `json:"name"`
	Pin   string  `json:"pin,omitempty"`
	Build string  `json:"build,omitempty"`
	Kind  PinKind `json:"kind"`
}

// ParseSpec parses a conda-style match specifier.
// Examples: "setuptools", "qiime2 2024.5.*", "python >=3.8,<3.12",
// "ncbi-amrfinderplus =3.12.8 h283d18e_0".
func ParseSpec(entry string) (PackageSpec, error) {
	fields := strings.Fields(entry)
	if len(fields) == 0 {
		return PackageSpec{}, fmt.Errorf("empty specifier")
	}
	if len(fields) > 3 {
		return PackageSpec{}, fmt.Errorf("too many fields (expected name [version [build]])")
	}

	name := strings.ToLower(fields[0])
	if !validPackageName(name) {
		return PackageSpec{}, fmt.Errorf("invalid package name %q", fields[0])
	}

	spec := PackageSpec{Name: name, Kind: PinNone}

	if len(fields) > 1 {
		pin := fields[1]
		kind, err := classifyPin(pin)
		if err != nil {
			return PackageSpec{}, err
		}
		spec.Pin = pin
		spec.Kind = kind
	}

	if len(fields) > 2 {
		spec.Build = fields[2]
	}

	return spec, nil
}

// Matches reports whether a concrete version satisfies the pin
func (s PackageSpec) Matches(version string) bool {
	if s.Kind == PinNone || version == "" {
		return s.Kind == PinNone
	}

	// All comma-joined constraints must hold
	for _, constraint := range strings.Split(s.Pin, ",") {
		if !matchConstraint(constraint, version) {
			return false
		}
	}
	return true
}

// String renders the specifier back to its canonical form
func (s PackageSpec) String() string {
	parts := []string{s.Name}
	if s.Pin != "" {
		parts = append(parts, s.Pin)
	}
	if s.Build != "" {
		parts = append(parts, s.Build)
	}
	return strings.Join(parts, " ")
}

func classifyPin(pin string) (PinKind, error) {
	if pin == "" {
		return PinNone, nil
	}
	if strings.Contains(pin, " ") {
		return "", fmt.Errorf("pin %q contains whitespace", pin)
	}

	bounded := false
	for _, constraint := range strings.Split(pin, ",") {
		if constraint == "" {
			return "", fmt.Errorf("empty constraint in pin %q", pin)
		}
		op, rest := splitOperator(constraint)
		switch op {
		case ">=", "<=", ">", "<", "!=":
			bounded = true
		case "=", "":
			// exact or wildcard handled below
		default:
			return "", fmt.Errorf("unknown operator %q in pin %q", op, pin)
		}
		if rest == "" {
			return "", fmt.Errorf("constraint %q has no version", constraint)
		}
		if !validVersionToken(rest) {
			return "", fmt.Errorf("invalid version token %q", rest)
		}
	}

	if bounded {
		return PinBounded, nil
	}
	if strings.HasSuffix(pin, ".*") || strings.HasSuffix(pin, "*") {
		return PinWildcard, nil
	}
	return PinExact, nil
}

func matchConstraint(constraint, version string) bool {
	op, rest := splitOperator(constraint)

	// Wildcard: strip trailing .* and prefix-match segments
	if strings.HasSuffix(rest, "*") {
		prefix := strings.TrimSuffix(strings.TrimSuffix(rest, "*"), ".")
		return versionHasPrefix(version, prefix)
	}

	cmp := CompareVersions(version, rest)
	switch op {
	case "", "=":
		return cmp == 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case "!=":
		return cmp != 0
	}
	return false
}

func splitOperator(constraint string) (op, rest string) {
	for _, candidate := range []string{">=", "<=", "!=", ">", "<", "="} {
		if strings.HasPrefix(constraint, candidate) {
			return candidate, constraint[len(candidate):]
		}
	}
	return "", constraint
}

// CompareVersions compares dotted version strings segment by segment.
// Numeric segments compare numerically, otherwise lexically; missing
// segments compare as zero. This is deliberately not semver: epoch
// versions like 2024.5 carry no patch triple.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av, bv := "0", "0"
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}

		ai, aErr := strconv.Atoi(av)
		bi, bErr := strconv.Atoi(bv)
		switch {
		case aErr == nil && bErr == nil:
			if ai != bi {
				if ai < bi {
					return -1
				}
				return 1
			}
		case aErr == nil:
			// numeric sorts after alpha segments (conda convention: 1.0 > 1.0rc)
			return 1
		case bErr == nil:
			return -1
		default:
			if av != bv {
				if av < bv {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}

func versionHasPrefix(version, prefix string) bool {
	if prefix == "" {
		return true
	}
	vs := strings.Split(version, ".")
	ps := strings.Split(prefix, ".")
	if len(ps) > len(vs) {
		return false
	}
	for i := range ps {
		if vs[i] != ps[i] {
			return false
		}
	}
	return true
}

func validVersionToken(token string) bool {
	for _, c := range token {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '*' || c == '_' || c == '-' || c == '+':
		default:
			return false
		}
	}
	return token != ""
}
