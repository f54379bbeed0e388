// Package kafka produces and consumes the service records with franz-go
// and keeps session state in a goka group table.
package kafka

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/lovoo/goka"
	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

// Brokers addresses the Kafka cluster. TLS is optional.
type Brokers struct {
	Seeds []string
	TLS   *tls.Config
}

func (b Brokers) kgoOpts() []kgo.Opt {
	opts := []kgo.Opt{kgo.SeedBrokers(b.Seeds...)}
	if b.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(b.TLS))
	}
	return opts
}

// gokaConfig applies TLS to the goka global config, goka clients take
// their sarama settings from there.
func (b Brokers) gokaConfig() {
	if b.TLS == nil {
		return
	}
	cfg := goka.DefaultConfig()
	cfg.Net.TLS.Enable = true
	cfg.Net.TLS.Config = b.TLS
	goka.ReplaceGlobalConfig(cfg)
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

func withNonlogProcOpt() goka.ProcessorOption {
	return goka.WithLogger(log.New(io.Discard, "", 0))
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func productToSchemaV1(v domain.Product) schema.ProductV1 {
	return schema.ProductV1{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		Category:    v.Category,
		Price:       v.Price,
		Rating:      v.Rating,
		Stock:       int64(v.Stock),
		ImageURL:    v.ImageURL,
	}
}

func schemaV1ToProduct(s schema.ProductV1) domain.Product {
	return domain.Product{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Category:    s.Category,
		Price:       s.Price,
		Rating:      s.Rating,
		Stock:       int(s.Stock),
		ImageURL:    s.ImageURL,
	}
}

func clientEventToSchemaV1(v domain.ClientEvent) schema.ClientEventV1 {
	return schema.ClientEventV1{
		SessionID:  v.SessionID,
		Kind:       string(v.Kind),
		ProductID:  v.ProductID,
		Quantity:   int64(v.Quantity),
		OccurredAt: v.OccurredAt.UTC(),
	}
}
