package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Keys of the values kept in client-local state.
const (
	KeyCurrentSession   = "currentSessionId"
	KeyPriceCoefficient = "priceCoefficient"
	KeyFailedMessage    = "failedMessage"
)

// Store is a small durable key-value port. Values are advisory caches, never
// authoritative: callers must cope with stale or malformed entries.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases the underlying resources.
	Close() error
}

// CurrentSessionID reads the stored current session pointer. A malformed
// value is removed and reported as absent.
func CurrentSessionID(ctx context.Context, s Store) (int64, bool, error) {
	raw, ok, err := s.Get(ctx, KeyCurrentSession)
	if err != nil || !ok {
		return 0, false, err
	}

	id, parseErr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if parseErr != nil || id <= 0 {
		if rmErr := s.Remove(ctx, KeyCurrentSession); rmErr != nil {
			return 0, false, fmt.Errorf("failed to drop malformed session pointer: %w", rmErr)
		}
		return 0, false, nil
	}
	return id, true, nil
}

// SetCurrentSessionID stores the current session pointer.
func SetCurrentSessionID(ctx context.Context, s Store, id int64) error {
	return s.Set(ctx, KeyCurrentSession, strconv.FormatInt(id, 10))
}

// ClearCurrentSessionID removes the current session pointer.
func ClearCurrentSessionID(ctx context.Context, s Store) error {
	return s.Remove(ctx, KeyCurrentSession)
}

// Coefficient reads the last chosen difficulty coefficient, defaulting to 1.0.
func Coefficient(ctx context.Context, s Store) (float64, error) {
	raw, ok, err := s.Get(ctx, KeyPriceCoefficient)
	if err != nil {
		return 1.0, err
	}
	if !ok {
		return 1.0, nil
	}
	v, parseErr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if parseErr != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0, nil
	}
	return v, nil
}

// SetCoefficient stores the difficulty coefficient.
func SetCoefficient(ctx context.Context, s Store, v float64) error {
	return s.Set(ctx, KeyPriceCoefficient, strconv.FormatFloat(v, 'f', -1, 64))
}

// FailedSend is the last buyer message whose analysis did not complete.
type FailedSend struct {
	Content   string `json:"content"`
	Error     string `json:"error,omitempty"`
	SessionID int64  `json:"sessionId"`
	MessageID int64  `json:"messageId,omitempty"`
}

// LoadFailedSend reads the stored failed send, if any.
func LoadFailedSend(ctx context.Context, s Store) (*FailedSend, error) {
	raw, ok, err := s.Get(ctx, KeyFailedMessage)
	if err != nil || !ok {
		return nil, err
	}
	var f FailedSend
	if err := json.Unmarshal([]byte(raw), &f); err != nil || f.Content == "" {
		return nil, s.Remove(ctx, KeyFailedMessage)
	}
	return &f, nil
}

// SaveFailedSend stores f, or removes the entry when f is nil.
func SaveFailedSend(ctx context.Context, s Store, f *FailedSend) error {
	if f == nil {
		return s.Remove(ctx, KeyFailedMessage)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode failed send: %w", err)
	}
	return s.Set(ctx, KeyFailedMessage, string(data))
}
