package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Input reads seller input from a terminal or pipe without blocking past
// context cancellation.
type Input struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex
}

// NewInput wraps r for reading and w for prompts.
func NewInput(r io.Reader, w io.Writer) *Input {
	if w == nil {
		w = io.Discard
	}
	return &Input{reader: bufio.NewReader(r), writer: w}
}

type readResult struct {
	err   error
	value string
}

func (in *Input) await(ctx context.Context, read func() (string, error)) (string, error) {
	ch := make(chan readResult, 1)
	go func() {
		in.mu.Lock()
		defer in.mu.Unlock()
		v, err := read()
		ch <- readResult{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-ch:
		return res.value, res.err
	}
}

// ReadLine reads one trimmed line. A final line without a newline is
// returned without error.
func (in *Input) ReadLine(ctx context.Context) (string, error) {
	line, err := in.await(ctx, func() (string, error) {
		return in.reader.ReadString('\n')
	})
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadMessage reads everything up to EOF, the way a pasted buyer message
// arrives on a pipe.
func (in *Input) ReadMessage(ctx context.Context) (string, error) {
	text, err := in.await(ctx, func() (string, error) {
		data, err := io.ReadAll(in.reader)
		return string(data), err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (in *Input) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprint(in.writer, FormatPrompt(question+" [y/N]")); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	answer, err := in.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
