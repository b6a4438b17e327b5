package ngram

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

func TestCountBigramsHelloWorld(t *testing.T) {
	freq, err := Count(context.Background(), strings.NewReader("Hello, World!"), 2)
	require.NoError(t, err)

	want := ternary.Frequencies{
		"he": 1, "el": 1, "ll": 1, "lo": 1, "o ": 1,
		" w": 1, "wo": 1, "or": 1, "rl": 1, "ld": 1,
	}
	for k, v := range want {
		assert.Equal(t, v, freq[k], "bigram %q", k)
	}
	// boundary windows at both ends of the text
	assert.Equal(t, int64(1), freq[" h"])
	assert.Equal(t, int64(1), freq["d "])
	assert.Len(t, freq, 12)

	for k := range freq {
		assert.Equal(t, strings.ToLower(k), k)
		assert.NotContains(t, k, "  ")
	}
}

func TestCountWindowSizes(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want ternary.Frequencies
	}{
		{
			name: "unigrams skip leading boundary",
			text: "  ab a",
			n:    1,
			want: ternary.Frequencies{"a": 2, "b": 1, " ": 1},
		},
		{
			name: "trigrams",
			text: "abab",
			n:    3,
			want: ternary.Frequencies{" ab": 1, "aba": 1, "bab": 1},
		},
		{
			name: "repeated punctuation collapses",
			text: "a...b\n\nc",
			n:    2,
			want: ternary.Frequencies{" a": 1, "a ": 1, " b": 1, "b ": 1, " c": 1},
		},
		{
			name: "empty",
			text: "",
			n:    2,
			want: ternary.Frequencies{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			freq, err := Count(context.Background(), strings.NewReader(tt.text), tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, freq)
		})
	}
}

func TestNewCounterRejectsSize(t *testing.T) {
	_, err := NewCounter(0)
	assert.True(t, errors.Is(err, optimization.ErrInvalidConfig))
}

func TestCounterIncremental(t *testing.T) {
	c, err := NewCounter(2)
	require.NoError(t, err)

	c.AddString("the")
	snapshot := c.Frequencies()
	c.AddString(" then")

	assert.Equal(t, int64(1), snapshot["th"])
	assert.Equal(t, int64(2), c.Frequencies()["th"])
}

func TestCountCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Count(ctx, strings.NewReader("abc"), 2)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCodecFormats(t *testing.T) {
	freq := ternary.Frequencies{"th": 100, "e ": 30, " t": 7}

	for _, format := range []Format{JSON, YAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, freq, format))

			got, err := Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, freq, got)
		})
	}
}

func TestEncodeJSONSortsKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, ternary.Frequencies{"zz": 1, "ab": 2, " a": 3}, JSON))
	assert.Equal(t, `{" a":3,"ab":2,"zz":1}`+"\n", buf.String())
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"th": -4}`), JSON)
	assert.True(t, errors.Is(err, optimization.ErrInvalidFrequencies))

	_, err = Decode(strings.NewReader(`{"th": "many"}`), JSON)
	assert.Error(t, err)

	freq, err := Decode(strings.NewReader(""), YAML)
	require.NoError(t, err)
	assert.Empty(t, freq)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, YAML, FormatFromPath("table.YML"))
	assert.Equal(t, YAML, FormatFromPath("dir/table.yaml"))
	assert.Equal(t, JSON, FormatFromPath("table.json"))
	assert.Equal(t, JSON, FormatFromPath("table"))

	f, err := ParseFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)
	_, err = ParseFormat("toml")
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bigrams.yaml")
	require.NoError(t, os.WriteFile(path, []byte("th: 3\n\"e \": 2\n"), 0o644))

	freq, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ternary.Frequencies{"th": 3, "e ": 2}, freq)

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
