package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_DeliversInOrder(t *testing.T) {
	var n Notifier[int]
	var got []string

	n.Subscribe(func(v int) { got = append(got, "a") })
	n.Subscribe(func(v int) { got = append(got, "b") })
	n.Notify(1)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestNotifier_Unsubscribe(t *testing.T) {
	var n Notifier[string]
	count := 0

	unsubscribe := n.Subscribe(func(string) { count++ })
	n.Notify("x")
	unsubscribe()
	unsubscribe()
	n.Notify("y")

	assert.Equal(t, 1, count)
}

func TestNotifier_ListenerMaySubscribe(t *testing.T) {
	var n Notifier[int]
	calls := 0

	n.Subscribe(func(int) {
		calls++
		n.Subscribe(func(int) { calls++ })
	})
	n.Notify(1)

	assert.Equal(t, 1, calls)
}
