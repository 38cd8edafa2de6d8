package assets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ernie/matfixer/internal/matfix"
)

// ParseOverrides parses a manual assignment file of "material,texture" lines.
// Keys are lowered material names; "//" starts a comment line.
func ParseOverrides(r io.Reader) (map[string]string, error) {
	scanner := bufio.NewScanner(r)
	overrides := make(map[string]string)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		// Format: material,texture
		parts := strings.SplitN(line, ",", 2)
		if len(parts) < 2 {
			continue
		}
		material := strings.ToLower(strings.TrimSpace(parts[0]))
		texture := strings.TrimSpace(parts[1])
		if material != "" && texture != "" {
			overrides[material] = texture
		}
	}

	return overrides, scanner.Err()
}

// LoadOverrides reads an overrides file.
func LoadOverrides(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open overrides: %w", err)
	}
	defer f.Close()
	return ParseOverrides(f)
}

// WriteOverrides writes a template for manually resolving failed materials.
// Materials without a suggestion get an empty texture column, which
// ParseOverrides ignores until it is filled in.
func WriteOverrides(w io.Writer, failed []matfix.Failure) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "// material,texture")
	for _, f := range failed {
		fmt.Fprintf(bw, "%s,%s\n", f.Material, f.Suggestion)
	}
	return bw.Flush()
}
