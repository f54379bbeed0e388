package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/sr"
)

var _ SchemaIdentifier = (*Registry)(nil)

// A Registry registers Avro schemas in the schema registry.
type Registry struct {
	cl *sr.Client
}

func NewRegistry(urls ...string) (*Registry, error) {
	const op = "NewRegistry"

	cl, err := sr.NewClient(sr.URLs(urls...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Registry{cl}, nil
}

// DetermineID registers schemaText under subject. Registering a schema
// that already exists returns its id.
func (r *Registry) DetermineID(
	ctx context.Context, subject, schemaText string,
) (int, error) {
	const op = "Registry.DetermineID"

	ss, err := r.cl.CreateSchema(ctx, subject, sr.Schema{
		Schema: schemaText,
		Type:   sr.TypeAvro,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: subject %q: %w", op, subject, err)
	}

	slog.Info("schema registered",
		"op", op, "subject", subject, "id", ss.ID, "version", ss.Version)
	return ss.ID, nil
}
