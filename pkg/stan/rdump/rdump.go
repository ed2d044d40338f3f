// Package rdump writes name/value data in the R dump format that
// CmdStan reads, hashing the serialized bytes as they are written so
// that output files are content-addressed: two identical data sets
// always produce the same file name, and the file never needs to be
// written twice.
package rdump

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Value is a datum that can be serialized in R dump format.
type Value interface {
	appendTo(out *strings.Builder)
}

// Scalar is a single real value.
type Scalar float64

func (s Scalar) appendTo(out *strings.Builder) {
	out.WriteString(FormatFloat(float64(s)))
}

// Int is a single integer value.
type Int int64

func (i Int) appendTo(out *strings.Builder) {
	out.WriteString(strconv.FormatInt(int64(i), 10))
}

// Vector is a one-dimensional sequence of reals.
type Vector []float64

func (v Vector) appendTo(out *strings.Builder) {
	out.WriteString("c(")
	for i, x := range v {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(FormatFloat(x))
	}
	out.WriteString(")")
}

// Matrix is a two-dimensional array of reals, row slices of equal
// length. R dump stores matrices column-major with an explicit .Dim.
type Matrix [][]float64

func (m Matrix) appendTo(out *strings.Builder) {
	rows := len(m)
	cols := 0
	if rows > 0 {
		cols = len(m[0])
	}
	out.WriteString("structure(c(")
	first := true
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			if !first {
				out.WriteString(", ")
			}
			first = false
			out.WriteString(FormatFloat(m[r][c]))
		}
	}
	fmt.Fprintf(out, "), .Dim = c(%d, %d))", rows, cols)
}

// FormatFloat is the canonical textual form used for every real value
// this package writes. HashScalar uses the same form, so the hash of a
// bare scalar and the hash of its file content cannot drift apart.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Encode serializes the values as R dump assignments, one per line, in
// sorted name order so the output is deterministic.
func Encode(values map[string]Value) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var out strings.Builder
	for _, name := range names {
		out.WriteString(name)
		out.WriteString(" <- ")
		values[name].appendTo(&out)
		out.WriteString("\n")
	}
	return out.String()
}

// Hash returns the hex SHA-256 of the serialized form of values.
func Hash(values map[string]Value) string {
	h := sha256.Sum256([]byte(Encode(values)))
	return hex.EncodeToString(h[:])
}

// HashScalar hashes a bare scalar from its canonical textual form. Used
// for initial values given as a single radius rather than a data file.
func HashScalar(v float64) string {
	h := sha256.Sum256([]byte(FormatFloat(v)))
	return hex.EncodeToString(h[:])
}

// WriteFile serializes values into dir under the name
// <prefix>-<contentHash>.R, writing through a temp file and renaming on
// completion. If the target already exists its content is identical by
// construction, so the write is skipped. Returns the file path and the
// content hash.
func WriteFile(dir, prefix string, values map[string]Value) (path, hash string, err error) {
	encoded := Encode(values)

	h := sha256.New()
	io.WriteString(h, encoded)
	hash = hex.EncodeToString(h.Sum(nil))

	path = filepath.Join(dir, prefix+"-"+hash+".R")
	if _, statErr := os.Stat(path); statErr == nil {
		return path, hash, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("rdump: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, prefix+"-*.tmp")
	if err != nil {
		return "", "", fmt.Errorf("rdump: create temp file: %w", err)
	}
	if _, err := tmp.WriteString(encoded); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("rdump: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("rdump: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("rdump: move into place: %w", err)
	}
	return path, hash, nil
}
