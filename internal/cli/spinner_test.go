package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_StartStop(t *testing.T) {
	out := &syncBuffer{}
	s := StartSpinner(out, "Analyzing")
	time.Sleep(250 * time.Millisecond)
	s.Stop()
	s.Stop()

	assert.Contains(t, out.String(), "Analyzing")
}
