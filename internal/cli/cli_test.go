package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/TRITMAP/internal/ngram"
	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/kernels"
	"github.com/copyleftdev/TRITMAP/internal/optimization/optimizationtest"
	"github.com/copyleftdev/TRITMAP/internal/optimization/scoring"
	"github.com/copyleftdev/TRITMAP/internal/optimization/tuning"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// execute runs the CLI with args and stdin, returning stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	root := New(strings.NewReader(stdin), &out, &errOut).RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFrequencies(t *testing.T, freq ternary.Frequencies) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bigrams.json")
	data, err := json.Marshal(freq)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestCount(t *testing.T) {
	out, _, err := execute(t, "Hello, World!", "count")
	require.NoError(t, err)

	var freq map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &freq))
	assert.Len(t, freq, 12)
	for _, key := range []string{" h", "he", "el", "ll", "lo", "o ", " w", "wo", "or", "rl", "ld", "d "} {
		assert.Equal(t, int64(1), freq[key], key)
	}
}

func TestCountYAMLFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "text.txt")
	output := filepath.Join(dir, "trigrams.yaml")
	require.NoError(t, os.WriteFile(input, []byte("abab"), 0o644))

	out, _, err := execute(t, "", "count", input, "-n", "3", "-o", output)
	require.NoError(t, err)
	assert.Empty(t, out)

	freq, err := ngram.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, ternary.Frequencies{" ab": 1, "aba": 1, "bab": 1}, freq)
}

func TestCountRejectsBadSize(t *testing.T) {
	_, _, err := execute(t, "abc", "count", "-n", "0")
	assert.ErrorIs(t, err, optimization.ErrInvalidConfig)
}

func TestGenerateScore(t *testing.T) {
	freq := optimizationtest.SmallFrequencies()
	path := writeFrequencies(t, freq)

	scorer, err := scoring.NewScorer(freq)
	require.NoError(t, err)
	identity := ternary.Identity()
	want := ternary.Letters + ":" + strconv.FormatFloat(scorer.Score(&identity)/210, 'f', -1, 64) + "\n"

	out, _, err := execute(t, "", "generate", path, "--score", ternary.Letters)
	require.NoError(t, err)
	assert.Equal(t, want, out)

	// Frequencies can come from stdin as well
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out, _, err = execute(t, string(data), "generate", "-", "--score", ternary.Letters)
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestGeneratePretty(t *testing.T) {
	path := writeFrequencies(t, optimizationtest.SmallFrequencies())

	out, _, err := execute(t, "", "generate", path, "--score", ternary.Letters, "--pretty")
	require.NoError(t, err)
	assert.Contains(t, out, "Score: ")
	assert.Contains(t, out, "Mapping:\n\n_ -> 000\na -> 001\n")
	assert.Contains(t, out, "z -> 222\n")
	assert.NotContains(t, out, "Accepted swaps")
}

func TestGenerateIsReproducible(t *testing.T) {
	path := writeFrequencies(t, optimizationtest.SmallFrequencies())

	first, _, err := execute(t, "", "generate", path, "-n", "5", "--seed", "1234", "-w", "2")
	require.NoError(t, err)
	second, _, err := execute(t, "", "generate", path, "-n", "5", "--seed", "1234")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	letters, _, ok := strings.Cut(strings.TrimSpace(first), ":")
	require.True(t, ok)
	arr, err := ternary.ParseArrangement(letters)
	require.NoError(t, err)
	optimizationtest.RequireBijection(t, arr)
}

func TestGenerateStochastic(t *testing.T) {
	path := writeFrequencies(t, optimizationtest.EnglishBigrams())

	out, _, err := execute(t, "", "generate", path,
		"-a", "stochastic", "-n", "200", "--seed", "3", "--acceptance", "cutoff", "--pretty")
	require.NoError(t, err)
	assert.Contains(t, out, "Algorithm: stochastic\n")
	assert.Contains(t, out, "Accepted swaps: ")
}

func TestGenerateErrors(t *testing.T) {
	good := writeFrequencies(t, optimizationtest.SmallFrequencies())
	degenerate := writeFrequencies(t, ternary.Frequencies{"th": 0})

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"degenerate table", []string{"generate", degenerate}, optimization.ErrDegenerateFrequencies},
		{"bad score mapping", []string{"generate", good, "--score", "abc"}, ternary.ErrInvalidArrangement},
		{"bad initial", []string{"generate", good, "-a", "stochastic", "--initial", "aa"}, ternary.ErrInvalidArrangement},
		{"unknown algorithm", []string{"generate", good, "-a", "genetic"}, optimization.ErrInvalidConfig},
		{"unknown tie break", []string{"generate", good, "--tie-break", "random"}, optimization.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, _, err := execute(t, "", "generate", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	const mapping = "zyxwvutsrqponmlkjihgfedcba"

	encoded, _, err := execute(t, "Hello, World!", "encode", "-m", mapping, "-s", " ")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(encoded, "000\n"))
	assert.Len(t, strings.Fields(encoded), len("hello world "))

	decoded, _, err := execute(t, encoded, "decode", "-m", mapping, "-s", " ")
	require.NoError(t, err)
	assert.Equal(t, "hello world \n", decoded)
}

func TestEncodeNoSpaces(t *testing.T) {
	out, _, err := execute(t, "ab c", "encode", "-x")
	require.NoError(t, err)
	assert.Equal(t, "001002003\n", out)

	_, _, err = execute(t, "ab", "encode", "-m", "abc")
	assert.ErrorIs(t, err, ternary.ErrInvalidArrangement)
}

func TestTuneEnvOutput(t *testing.T) {
	path := writeFrequencies(t, optimizationtest.SmallFrequencies())
	args := []string{"tune", path, "-n", "200", "--repeats", "1", "--evaluations", "2", "--initial-points", "2", "--seed", "5"}

	out, _, err := execute(t, "", args...)
	require.NoError(t, err)

	env, err := godotenv.Unmarshal(out)
	require.NoError(t, err)
	assert.Equal(t, "metropolis", env["OPT_ACCEPTANCE"])

	temperature, err := strconv.ParseFloat(env["OPT_TEMPERATURE"], 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, temperature, 0.5)
	cooling, err := strconv.ParseFloat(env["OPT_COOLING"], 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cooling, 0.99)
	assert.Less(t, cooling, 1.0)

	again, _, err := execute(t, "", args...)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestTuneReport(t *testing.T) {
	path := writeFrequencies(t, optimizationtest.EnglishBigrams())

	out, _, err := execute(t, "", "tune", path, "-n", "200", "--repeats", "1", "--evaluations", "1", "--initial-points", "2", "--seed", "8", "--kernel", "rbf", "--report")
	require.NoError(t, err)

	var result tuning.Result
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Trials, 3)
	assert.Equal(t, int64(8), result.Seed)
	assert.Equal(t, kernels.RBF, result.Kernel)
	assert.Greater(t, result.Best.MeanScore, 0.0)
}

func TestTuneErrors(t *testing.T) {
	degenerate := writeFrequencies(t, ternary.Frequencies{"th": 0})
	_, _, err := execute(t, "", "tune", degenerate)
	assert.ErrorIs(t, err, optimization.ErrDegenerateFrequencies)

	good := writeFrequencies(t, optimizationtest.SmallFrequencies())
	_, _, err = execute(t, "", "tune", good, "--repeats", "-1")
	assert.ErrorIs(t, err, optimization.ErrInvalidConfig)

	_, _, err = execute(t, "", "tune", good, "--kernel", "periodic")
	assert.ErrorIs(t, err, optimization.ErrInvalidConfig)

	_, _, err = execute(t, "", "tune", good, "--initial", "zz")
	assert.ErrorIs(t, err, ternary.ErrInvalidArrangement)
}
