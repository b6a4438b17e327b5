package ngram

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// Format is a frequency table interchange format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unknown frequency format %q", s)
	}
}

// FormatFromPath picks YAML for .yaml and .yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Decode reads a frequency table and rejects negative counts.
func Decode(r io.Reader, format Format) (ternary.Frequencies, error) {
	var freq ternary.Frequencies
	var err error
	switch format {
	case YAML:
		err = yaml.NewDecoder(r).Decode(&freq)
		if err == io.EOF {
			err = nil
		}
	default:
		err = json.NewDecoder(r).Decode(&freq)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s frequency table: %w", format, err)
	}
	if freq == nil {
		freq = ternary.Frequencies{}
	}
	if err := freq.Validate(); err != nil {
		return nil, optimization.WrapError(optimization.ErrInvalidFrequencies, err.Error()).WithComponent("ngram")
	}
	return freq, nil
}

// Encode writes freq with sorted keys.
func Encode(w io.Writer, freq ternary.Frequencies, format Format) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(map[string]int64(freq)); err != nil {
			return fmt.Errorf("encode yaml frequency table: %w", err)
		}
		return enc.Close()
	default:
		data, err := json.Marshal(map[string]int64(freq))
		if err != nil {
			return fmt.Errorf("encode json frequency table: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	}
}

// ReadFile decodes the frequency table at path, choosing the format by
// extension. A path of "-" reads standard input as JSON.
func ReadFile(path string) (ternary.Frequencies, error) {
	if path == "-" {
		return Decode(os.Stdin, JSON)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, FormatFromPath(path))
}
