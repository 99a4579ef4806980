package iff

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
)

// Version is an IFF file format version, e.g. "2.15". Comparison is
// numeric field-by-field, so 2.9 orders before 2.13.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a dotted numeric version string. One to three
// components are accepted; missing components are zero.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("empty version string")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("malformed version %q", s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func (v Version) String() string {
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0 or 1 comparing v against o.
func (v Version) Compare(o Version) int {
	a := [3]int{v.Major, v.Minor, v.Patch}
	b := [3]int{o.Major, o.Minor, o.Patch}
	for i := 0; i < 3; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v >= o.
func (v Version) AtLeast(o Version) bool { return v.Compare(o) >= 0 }

// DetectVersion reads the declared format version from the first line
// of an IFF file. By convention the header record (type 1) is the first
// line and carries the version as its third field.
func DetectVersion(path string, enc encoding.Encoding) (Version, error) {
	f, err := os.Open(path)
	if err != nil {
		return Version{}, err
	}
	defer f.Close()

	sc := newLineScanner(f, enc)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Version{}, fmt.Errorf("read %s: %w", path, err)
		}
		return Version{}, &FormatError{Path: path, Line: 0, Msg: "empty file, no header record"}
	}

	fields := strings.Split(sc.Text(), ",")
	if len(fields) < 3 {
		return Version{}, &FormatError{Path: path, Line: 0, Msg: "header record has no version field"}
	}
	v, err := ParseVersion(fields[2])
	if err != nil {
		return Version{}, &FormatError{Path: path, Line: 0, Msg: err.Error()}
	}
	return v, nil
}
