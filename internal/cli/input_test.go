package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInput_ReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "line", input: "hello\n", want: "hello"},
		{name: "surrounding whitespace", input: "  hello  \n", want: "hello"},
		{name: "empty line", input: "\n", want: ""},
		{name: "no trailing newline", input: "last", want: "last"},
		{name: "nothing", input: "", wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInput(strings.NewReader(tt.input), nil)
			got, err := in.ReadLine(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInput_ReadLineCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	in := NewInput(pr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := in.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestInput_ReadMessage(t *testing.T) {
	in := NewInput(strings.NewReader("老板你好\n想写个3000字的报告\n\n"), nil)
	got, err := in.ReadMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "老板你好\n想写个3000字的报告", got)
}

func TestInput_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			in := NewInput(strings.NewReader(tt.input), &out)
			got, err := in.Confirm(context.Background(), "Delete session 3?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Delete session 3? [y/N]")
		})
	}
}
