package cli

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Spinner shows an indeterminate progress indicator while a request runs.
type Spinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// StartSpinner draws a spinner with description on w until Stop is called.
func StartSpinner(w io.Writer, description string) *Spinner {
	if w == nil {
		w = os.Stderr
	}
	s := &Spinner{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionClearOnFinish(),
		),
		done: make(chan struct{}),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				if err := s.bar.Add(1); err != nil {
					slog.Debug("Failed to advance spinner", "error", err)
				}
			}
		}
	}()
	return s
}

// Stop clears the spinner. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		if err := s.bar.Finish(); err != nil {
			slog.Debug("Failed to clear spinner", "error", err)
		}
	})
}
