package rdump

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncodeForms(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"n", Int(12), "n <- 12\n"},
		{"sigma", Scalar(2.5), "sigma <- 2.5\n"},
		{"y", Vector{1, 2.5, -3}, "y <- c(1, 2.5, -3)\n"},
		{
			"m",
			Matrix{{1, 2}, {3, 4}, {5, 6}},
			"m <- structure(c(1, 3, 5, 2, 4, 6), .Dim = c(3, 2))\n",
		},
	}
	for _, tt := range tests {
		got := Encode(map[string]Value{tt.name: tt.value})
		if got != tt.want {
			t.Errorf("Encode(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestEncodeSortsNames(t *testing.T) {
	got := Encode(map[string]Value{
		"zeta":  Int(3),
		"alpha": Int(1),
		"mid":   Int(2),
	})
	want := "alpha <- 1\nmid <- 2\nzeta <- 3\n"
	if got != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
}

func TestWriteFileContentAddressed(t *testing.T) {
	dir := t.TempDir()
	values := map[string]Value{"N": Int(10), "y": Vector{1, 2, 3}}

	path, hash, err := WriteFile(dir, "data", values)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if want := filepath.Join(dir, "data-"+hash+".R"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if hash != Hash(values) {
		t.Errorf("file hash %q differs from Hash() %q", hash, Hash(values))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(content) != Encode(values) {
		t.Errorf("file content %q, want %q", content, Encode(values))
	}

	// Writing the same values again reuses the existing file.
	info1, _ := os.Stat(path)
	path2, hash2, err := WriteFile(dir, "data", values)
	if err != nil {
		t.Fatalf("second WriteFile: %v", err)
	}
	if path2 != path || hash2 != hash {
		t.Errorf("second write: path %q hash %q, want %q %q", path2, hash2, path, hash)
	}
	info2, _ := os.Stat(path)
	if !info1.ModTime().Equal(info2.ModTime()) {
		t.Errorf("identical data was rewritten")
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestDifferentDataDifferentHash(t *testing.T) {
	a := Hash(map[string]Value{"x": Scalar(1)})
	b := Hash(map[string]Value{"x": Scalar(2)})
	if a == b {
		t.Errorf("different data hashed identically")
	}
}

// TestHashScalarMatchesFileForm: a scalar hashed bare and the same
// scalar written through Encode use the same textual form, so a change
// to one would show up here.
func TestHashScalarMatchesFileForm(t *testing.T) {
	for _, v := range []float64{0, 2, 0.1, -3.75, 1e21, 123456789.123} {
		text := FormatFloat(v)
		line := Encode(map[string]Value{"r": Scalar(v)})
		if line != "r <- "+text+"\n" {
			t.Errorf("Encode(%v) = %q, not built from FormatFloat %q", v, line, text)
		}
	}
	if HashScalar(2) == HashScalar(2.5) {
		t.Errorf("distinct scalars hashed identically")
	}
}
