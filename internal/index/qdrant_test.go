package index

import (
	"errors"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClientConfigApplyDefaults(t *testing.T) {
	cfg := &ClientConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestClientConfigDefaultsKeepExplicitValues(t *testing.T) {
	cfg := &ClientConfig{Host: "qdrant.internal", Port: 7000, RetryAttempts: 1}
	cfg.ApplyDefaults()

	assert.Equal(t, "qdrant.internal", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 1, cfg.RetryAttempts)
}

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{"valid", ClientConfig{Host: "localhost", Port: 6334}, false},
		{"missing host", ClientConfig{Port: 6334}, true},
		{"zero port", ClientConfig{Host: "localhost"}, true},
		{"port too large", ClientConfig{Host: "localhost", Port: 70000}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMetricToDistance(t *testing.T) {
	assert.Equal(t, qdrant.Distance_Cosine, metricToDistance("cosine"))
	assert.Equal(t, qdrant.Distance_Cosine, metricToDistance("COSINE"))
	assert.Equal(t, qdrant.Distance_Dot, metricToDistance("dot"))
	assert.Equal(t, qdrant.Distance_Euclid, metricToDistance("euclidean"))
	assert.Equal(t, qdrant.Distance_Cosine, metricToDistance("unknown"))
}

func TestConvertFilter(t *testing.T) {
	assert.Nil(t, convertFilter(nil))
	assert.Nil(t, convertFilter(Filter{}))

	f := convertFilter(Filter{"username": "alice"})
	require.NotNil(t, f)
	assert.Len(t, f.Must, 1)

	f = convertFilter(Filter{"username": "alice", "filename": "a.pdf"})
	require.NotNil(t, f)
	assert.Len(t, f.Must, 2)
}

func TestConvertPayload(t *testing.T) {
	assert.Nil(t, convertPayload(nil))

	payload := map[string]*qdrant.Value{
		"username": qdrant.NewValueString("alice"),
		"count":    qdrant.NewValueInt(3),
	}
	metadata := convertPayload(payload)
	assert.Equal(t, "alice", metadata["username"])
	_, hasCount := metadata["count"]
	assert.False(t, hasCount, "non-string payload values are dropped")
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, isTransientError(status.Error(codes.Unavailable, "down")))
	assert.True(t, isTransientError(status.Error(codes.DeadlineExceeded, "slow")))
	assert.True(t, isTransientError(status.Error(codes.Aborted, "conflict")))
	assert.True(t, isTransientError(status.Error(codes.ResourceExhausted, "throttled")))

	assert.False(t, isTransientError(status.Error(codes.NotFound, "missing")))
	assert.False(t, isTransientError(status.Error(codes.InvalidArgument, "bad")))
	assert.False(t, isTransientError(errors.New("plain error")))
}

func TestPointIDString(t *testing.T) {
	assert.Equal(t, "", pointIDString(nil))
	assert.Equal(t, "abc-123", pointIDString(qdrant.NewIDUUID("abc-123")))
	assert.Equal(t, "42", pointIDString(qdrant.NewIDNum(42)))
}
