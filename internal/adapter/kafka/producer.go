package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	_ port.ProductsProducer     = ProductsProducer{}
	_ port.ClientEventsProducer = ClientEventsProducer{}
)

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

// ProducerClientOpt connects a franz-go client producing to topic.
func ProducerClientOpt(
	ctx context.Context, brokers Brokers, topic string,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kopts := append(brokers.kgoOpts(),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		)
		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

func producerClientOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("producer client is nil")
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

func applyProducerOpts(op string, opts []ProducerOpt) (producerOpts, error) {
	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return producerOpts{}, opErr(err, op)
		}
	}
	if options.cl == nil || options.encoder == nil {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}
	return options, nil
}

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing producer...")
	if err := p.cl.Flush(context.Background()); err != nil {
		log.Error("failed to flush", "err", err)
	}
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(ctx context.Context, rs ...*kgo.Record) error {
	const op = "produce"
	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// produceAsync hands rs to the client buffer and logs delivery failures.
func (p producer) produceAsync(ctx context.Context, rs ...*kgo.Record) {
	const op = "produceAsync"
	log := slog.With("op", makeOp(p.opPrefix, op))

	for _, r := range rs {
		p.cl.Produce(ctx, r, func(r *kgo.Record, err error) {
			if err != nil {
				log.Error("failed to deliver record",
					"key", string(r.Key), "err", err)
			}
		})
	}
}

// A ProductsProducer used for produce [domain.Product]
type ProductsProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewProductsProducer(opts ...ProducerOpt) (ProductsProducer, error) {
	const op = "NewProductsProducer"

	options, err := applyProducerOpts(op, opts)
	if err != nil {
		return ProductsProducer{}, err
	}

	opPrefix := "ProductsProducer"
	return ProductsProducer{
		producer: producer{opPrefix: opPrefix, cl: options.cl},
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p ProductsProducer) Close() {
	p.producer.close()
}

func (p ProductsProducer) ProduceProducts(
	ctx context.Context, vs []domain.Product,
) error {
	const op = "ProduceProducts"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	rs, err := p.createRecords(vs)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, rs...); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

func (p ProductsProducer) createRecords(
	vs []domain.Product,
) ([]*kgo.Record, error) {
	const op = "createRecords"

	rs := make([]*kgo.Record, 0, len(vs))
	for _, v := range vs {
		b, err := p.encoder.Encode(productToSchemaV1(v))
		if err != nil {
			return nil, opErr(err, p.opPrefix, op)
		}
		rs = append(rs, &kgo.Record{Key: []byte(v.ID), Value: b})
	}
	return rs, nil
}

// A ClientEventsProducer used for produce [domain.ClientEvent].
//
// Records are keyed by session id and delivered asynchronously.
type ClientEventsProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewClientEventsProducer(opts ...ProducerOpt) (ClientEventsProducer, error) {
	const op = "NewClientEventsProducer"

	options, err := applyProducerOpts(op, opts)
	if err != nil {
		return ClientEventsProducer{}, err
	}

	opPrefix := "ClientEventsProducer"
	return ClientEventsProducer{
		producer: producer{opPrefix: opPrefix, cl: options.cl},
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p ClientEventsProducer) Close() {
	p.producer.close()
}

func (p ClientEventsProducer) ProduceEvents(
	ctx context.Context, evts ...domain.ClientEvent,
) error {
	const op = "ProduceEvents"

	rs := make([]*kgo.Record, 0, len(evts))
	for _, evt := range evts {
		b, err := p.encoder.Encode(clientEventToSchemaV1(evt))
		if err != nil {
			return opErr(err, p.opPrefix, op)
		}
		rs = append(rs, &kgo.Record{
			Key:       []byte(evt.SessionID),
			Value:     b,
			Timestamp: evt.OccurredAt,
		})
	}

	p.producer.produceAsync(context.WithoutCancel(ctx), rs...)
	return nil
}
