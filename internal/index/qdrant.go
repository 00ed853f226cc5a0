package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/docqa/internal/logging"
)

// ClientConfig configures the Qdrant-backed index client.
type ClientConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT the HTTP REST port).
	// Default: 6334
	Port int

	// UseTLS enables TLS encryption for the gRPC connection.
	UseTLS bool

	// APIKey is the optional API key for authentication.
	APIKey string

	// Dimension is the vector dimensionality reported in Stats.
	Dimension int

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB, to handle large upsert batches.
	MaxMessageSize int

	// DialTimeout is the timeout for establishing the connection.
	// Default: 5 seconds
	DialTimeout time.Duration

	// RequestTimeout bounds every individual remote call.
	// Default: 30 seconds
	RequestTimeout time.Duration

	// RetryAttempts is the number of retries for transient failures.
	// Default: 3
	RetryAttempts int
}

// ApplyDefaults sets default values for unset fields.
func (c *ClientConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Port)
	}
	return nil
}

// QdrantClient implements Client using Qdrant's official Go client over gRPC.
//
// Each index maps to one Qdrant collection; DescribeStats maps to an exact
// point count and DeleteAll to a filter-less points delete.
type QdrantClient struct {
	client *qdrant.Client
	config *ClientConfig
	logger *logging.Logger
}

var _ Client = (*QdrantClient)(nil)

// NewQdrantClient creates a Qdrant-backed index client and verifies the
// connection with a health check.
func NewQdrantClient(config *ClientConfig, logger *logging.Logger) (*QdrantClient, error) {
	if config == nil {
		config = &ClientConfig{}
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	qdrantConfig := &qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		APIKey: config.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	}
	if !config.UseTLS {
		qdrantConfig.GrpcOptions = append(qdrantConfig.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}

	client, err := qdrant.NewClient(qdrantConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c := &QdrantClient{
		client: client,
		config: config,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		logger.Error(ctx, "index health check failed",
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	logger.Info(ctx, "index connection established",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
	)

	return c, nil
}

// ListIndexes returns the names of all indexes.
func (c *QdrantClient) ListIndexes(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var names []string
	err := c.retryOperation(ctx, func() error {
		result, err := c.client.ListCollections(ctx)
		if err != nil {
			return err
		}
		names = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// CreateIndex creates a new index with the spec's dimension and metric.
// Cloud and Region are placement hints for managed deployments; the
// self-hosted backend ignores them.
func (c *QdrantClient) CreateIndex(ctx context.Context, spec Spec) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	return c.retryOperation(ctx, func() error {
		return c.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: spec.Name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(spec.Dimension),
				Distance: metricToDistance(spec.Metric),
			}),
		})
	})
}

// DescribeStats returns an exact entry count for the named index.
func (c *QdrantClient) DescribeStats(ctx context.Context, name string) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var count uint64
	err := c.retryOperation(ctx, func() error {
		result, err := c.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: name,
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
				return ErrIndexNotFound
			}
			return err
		}
		count = result
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalVectorCount: int(count),
		Dimension:        c.config.Dimension,
	}, nil
}

// Upsert writes entries in one batched call.
func (c *QdrantClient) Upsert(ctx context.Context, name string, entries []Entry) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		payload := make(map[string]*qdrant.Value, len(e.Metadata))
		for k, v := range e.Metadata {
			payload[k] = qdrant.NewValueString(v)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(e.ID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: payload,
		}
	}

	return c.retryOperation(ctx, func() error {
		_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         points,
		})
		return err
	})
}

// Query performs a similarity query and returns matches ordered by score.
func (c *QdrantClient) Query(ctx context.Context, name string, q Query) ([]Match, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var results []*qdrant.ScoredPoint
	err := c.retryOperation(ctx, func() error {
		res, err := c.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: name,
			Query:          qdrant.NewQuery(q.Vector...),
			Limit:          qdrant.PtrOf(uint64(q.TopK)),
			WithPayload:    qdrant.NewWithPayload(q.IncludeMetadata),
			Filter:         convertFilter(q.Filter),
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			ID:       pointIDString(r.Id),
			Score:    r.Score,
			Metadata: convertPayload(r.Payload),
		}
	}
	return matches, nil
}

// Delete removes the entries with the given ids.
func (c *QdrantClient) Delete(ctx context.Context, name string, ids []string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	return c.retryOperation(ctx, func() error {
		_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: name,
			Points:         qdrant.NewPointsSelector(pointIDs...),
		})
		return err
	})
}

// DeleteAll removes every entry via a filter-less points delete.
func (c *QdrantClient) DeleteAll(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	return c.retryOperation(ctx, func() error {
		_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: name,
			Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
		})
		return err
	})
}

// Close closes the client connection.
func (c *QdrantClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// retryOperation retries an operation with exponential backoff on transient
// gRPC failures.
func (c *QdrantClient) retryOperation(ctx context.Context, operation func() error) error {
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransientError(err) {
			return err
		}
		if attempt == c.config.RetryAttempts {
			break
		}

		c.logger.Debug(ctx, "retrying index operation after transient error",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.config.RetryAttempts),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", c.config.RetryAttempts, lastErr)
}

// isTransientError checks if an error should be retried.
func isTransientError(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// metricToDistance maps a metric name to a Qdrant distance.
func metricToDistance(metric string) qdrant.Distance {
	switch strings.ToLower(metric) {
	case "dot":
		return qdrant.Distance_Dot
	case "euclidean":
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

// convertFilter maps equality conditions to a Qdrant must-filter.
func convertFilter(f Filter) *qdrant.Filter {
	if len(f) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(f))
	for field, value := range f {
		must = append(must, qdrant.NewMatch(field, value))
	}
	return &qdrant.Filter{Must: must}
}

// convertPayload maps a Qdrant payload to flat string metadata. Non-string
// payload values are ignored; the schema only writes strings.
func convertPayload(payload map[string]*qdrant.Value) map[string]string {
	if len(payload) == 0 {
		return nil
	}
	metadata := make(map[string]string, len(payload))
	for k, v := range payload {
		if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			metadata[k] = s.StringValue
		}
	}
	return metadata
}

// pointIDString renders a Qdrant point id as a string.
func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	default:
		return ""
	}
}
