package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339", input: `"2024-03-01T10:20:30Z"`, want: time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{name: "naive with micros", input: `"2024-03-01T10:20:30.123456"`, want: time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.Local)},
		{name: "sqlite default", input: `"2024-03-01 10:20:30"`, want: time.Date(2024, 3, 1, 10, 20, 30, 0, time.Local)},
		{name: "null", input: `null`},
		{name: "empty", input: `""`},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "number", input: `12`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(ts.Time), "got %v want %v", ts.Time, tt.want)
		})
	}
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	data, err = json.Marshal(NewTimestamp(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T00:00:00Z"`, string(data))
}
