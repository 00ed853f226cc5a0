package vectorstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/index"
	"github.com/fyrsmithlabs/docqa/internal/logging"
)

// EnsureOutcome reports how EnsureIndex resolved.
type EnsureOutcome int

const (
	// IndexFound means the index already existed.
	IndexFound EnsureOutcome = iota

	// IndexCreated means the index was created by this call.
	IndexCreated
)

// String returns the outcome name for logging.
func (o EnsureOutcome) String() string {
	if o == IndexCreated {
		return "created"
	}
	return "found"
}

// Provisioner ensures the remote index exists with the configured
// dimensionality and metric, creating it on first use.
type Provisioner struct {
	client index.Client
	spec   index.Spec
	logger *logging.Logger
}

// NewProvisioner creates a Provisioner for the given index spec.
func NewProvisioner(client index.Client, spec index.Spec, logger *logging.Logger) *Provisioner {
	return &Provisioner{
		client: client,
		spec:   spec,
		logger: logger.Named("provisioner"),
	}
}

// EnsureIndex checks for the index by name and creates it only when absent.
// Idempotent: safe to call repeatedly; the second call never creates a
// second index and never errors because the first one exists.
func (p *Provisioner) EnsureIndex(ctx context.Context) (EnsureOutcome, error) {
	start := time.Now()

	names, err := p.client.ListIndexes(ctx)
	if err != nil {
		observeOperation("provision", start, err)
		return IndexFound, &ProvisioningError{Index: p.spec.Name, Err: err}
	}

	for _, name := range names {
		if name == p.spec.Name {
			observeOperation("provision", start, nil)
			return IndexFound, nil
		}
	}

	if err := p.client.CreateIndex(ctx, p.spec); err != nil {
		observeOperation("provision", start, err)
		return IndexFound, &ProvisioningError{Index: p.spec.Name, Err: err}
	}
	observeOperation("provision", start, nil)

	p.logger.Info(ctx, "created index",
		zap.String("index", p.spec.Name),
		zap.Int("dimension", p.spec.Dimension),
		zap.String("metric", p.spec.Metric),
		zap.String("region", p.spec.Region),
	)
	return IndexCreated, nil
}
