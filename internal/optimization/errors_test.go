package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  NewError("boom"),
			want: "boom",
		},
		{
			name: "component and op",
			err:  NewError("boom").WithComponent("scoring").WithOperation("Score"),
			want: "scoring: Score: boom",
		},
		{
			name: "wrapped",
			err:  WrapError(ErrDegenerateFrequencies, "normalize").WithComponent("mapping"),
			want: "mapping: normalize: frequency table has zero total count",
		},
		{
			name: "wrapped without message",
			err:  WrapError(ErrInvalidConfig, "").WithOperation("New"),
			want: "New: invalid optimizer configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("load: %w", WrapErrorf(ErrInvalidArrangement, "mapping %q", "abc"))

	assert.True(t, errors.Is(err, ErrInvalidArrangement))
	assert.False(t, errors.Is(err, ErrDegenerateFrequencies))

	optErr, ok := IsOptimizationError(err)
	assert.True(t, ok)
	assert.Equal(t, `mapping "abc"`, optErr.Message)

	_, ok = IsOptimizationError(errors.New("plain"))
	assert.False(t, ok)

	assert.Nil(t, WrapError(nil, "ignored"))
	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
}
