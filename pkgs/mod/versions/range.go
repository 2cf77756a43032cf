// Package versions parses version ranges of dependency requirements.
package versions

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Range is a set of versions described by a conjunction of comparisons,
// e.g. "~1.76", ">=1.2 <2.0", "^3.1.0", "1.76.0" or "*".
type Range struct {
	raw     string
	clauses []clause
}

type clause struct {
	op  string // one of = > >= < <=
	ver string // canonical semver, "v" prefixed
}

// ParseRange parses a range expression. Clauses are separated by spaces
// or commas and must all hold. An empty expression or "*" matches every
// version.
func ParseRange(s string) (Range, error) {
	r := Range{raw: strings.TrimSpace(s)}
	fields := strings.FieldsFunc(r.raw, func(c rune) bool { return c == ' ' || c == ',' })
	for _, f := range fields {
		if f == "*" {
			continue
		}
		cs, err := parseClause(f)
		if err != nil {
			return Range{}, err
		}
		r.clauses = append(r.clauses, cs...)
	}
	return r, nil
}

func parseClause(f string) ([]clause, error) {
	for _, op := range []string{">=", "<=", ">", "<", "=", "~", "^"} {
		if !strings.HasPrefix(f, op) {
			continue
		}
		v, ok := Canonical(f[len(op):])
		if !ok {
			return nil, fmt.Errorf("invalid version %q in range", f[len(op):])
		}
		switch op {
		case "~":
			return []clause{{">=", v}, {"<", bumpTilde(f[len(op):], v)}}, nil
		case "^":
			return []clause{{">=", v}, {"<", bumpCaret(v)}}, nil
		}
		return []clause{{op, v}}, nil
	}
	v, ok := Canonical(f)
	if !ok {
		return nil, fmt.Errorf("invalid version %q in range", f)
	}
	return []clause{{"=", v}}, nil
}

// Canonical returns the canonical semver form ("v1.76.0") of a version
// written with or without the "v" prefix and with missing minor/patch.
func Canonical(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	c := semver.Canonical(v)
	return c, c != ""
}

// Compare compares two versions written with or without the "v" prefix.
// Invalid versions sort before valid ones.
func Compare(a, b string) int {
	ca, _ := Canonical(a)
	cb, _ := Canonical(b)
	return semver.Compare(ca, cb)
}

// Match reports whether version lies in the range.
func (r Range) Match(version string) bool {
	v, ok := Canonical(version)
	if !ok {
		return false
	}
	for _, c := range r.clauses {
		n := semver.Compare(v, c.ver)
		var hold bool
		switch c.op {
		case "=":
			hold = n == 0
		case ">":
			hold = n > 0
		case ">=":
			hold = n >= 0
		case "<":
			hold = n < 0
		case "<=":
			hold = n <= 0
		}
		if !hold {
			return false
		}
	}
	return true
}

func (r Range) String() string {
	if r.raw == "" {
		return "*"
	}
	return r.raw
}

// bumpTilde returns the exclusive upper bound of "~written": the next
// minor when a minor was written, the next major otherwise.
func bumpTilde(written, canonical string) string {
	major, minor := parts(canonical)
	if strings.Count(strings.TrimPrefix(written, "v"), ".") == 0 {
		return "v" + strconv.Itoa(major+1) + ".0.0"
	}
	return "v" + strconv.Itoa(major) + "." + strconv.Itoa(minor+1) + ".0"
}

// bumpCaret returns the exclusive upper bound of "^v": the next major,
// or the next minor for 0.x versions.
func bumpCaret(canonical string) string {
	major, minor := parts(canonical)
	if major == 0 {
		return "v0." + strconv.Itoa(minor+1) + ".0"
	}
	return "v" + strconv.Itoa(major+1) + ".0.0"
}

func parts(canonical string) (major, minor int) {
	mm := strings.TrimPrefix(semver.MajorMinor(canonical), "v")
	ma, mi, _ := strings.Cut(mm, ".")
	major, _ = strconv.Atoi(ma)
	minor, _ = strconv.Atoi(mi)
	return major, minor
}
