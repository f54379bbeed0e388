package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/internal/core/port"
	"github.com/niksmo/product-explorer/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

const slowDownDelay = time.Second

type ConsumerClient interface {
	PollFetches(context.Context) kgo.Fetches
	CommitUncommittedOffsets(context.Context) error
	Close()
}

type ConsumerOpt func(*consumerOpts) error

// ConsumerClientOpt joins group on topic. Offsets are committed only
// after a batch is handled.
func ConsumerClientOpt(brokers Brokers, topic, group string) ConsumerOpt {
	return func(co *consumerOpts) error {
		kopts := append(brokers.kgoOpts(),
			kgo.ConsumeTopics(topic),
			kgo.ConsumerGroup(group),
			kgo.DisableAutoCommit(),
		)
		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}
		co.cl = cl
		return nil
	}
}

func consumerClientOpt(cl ConsumerClient) ConsumerOpt {
	return func(co *consumerOpts) error {
		if cl == nil {
			return errors.New("consumer client is nil")
		}
		co.cl = cl
		return nil
	}
}

func ConsumerDecoderOpt(decoder Decoder) ConsumerOpt {
	return func(co *consumerOpts) error {
		if decoder == nil {
			return errors.New("decoder is nil")
		}
		co.decoder = decoder
		return nil
	}
}

func ProductsConsumerSaverOpt(ps port.ProductsSaver) ConsumerOpt {
	return func(co *consumerOpts) error {
		if ps == nil {
			return errors.New("products saver is nil")
		}
		co.productsSaver = ps
		return nil
	}
}

type consumerOpts struct {
	cl            ConsumerClient
	decoder       Decoder
	productsSaver port.ProductsSaver
}

func (co *consumerOpts) apply(opts ...ConsumerOpt) error {
	for _, opt := range opts {
		if err := opt(co); err != nil {
			return err
		}
	}
	return nil
}

type batchHandler func(context.Context, kgo.Fetches) error

// A consumer polls batches, hands them to handle and commits the
// offsets once handle succeeds. A failed batch is not committed, so the
// group redelivers it after a rebalance or restart.
type consumer struct {
	opPrefix string
	cl       ConsumerClient
	handle   batchHandler
	delay    time.Duration
}

func (c consumer) run(ctx context.Context) {
	log := slog.With("op", makeOp(c.opPrefix, "run"))
	log.Info("running")
	defer log.Info("stopped")

	for ctx.Err() == nil {
		err := c.consume(ctx)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		default:
			log.Error("failed to consume", "err", err)
			c.slowDown(ctx)
		}
	}
}

func (c consumer) consume(ctx context.Context) error {
	const op = "consume"

	fetches := c.cl.PollFetches(ctx)
	if err := fetchesErr(fetches); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	if fetches.Empty() {
		return nil
	}

	if err := c.handle(ctx, fetches); err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if err := ctx.Err(); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	if err := c.cl.CommitUncommittedOffsets(ctx); err != nil {
		return opErr(err, c.opPrefix, op, "commit")
	}
	return nil
}

// fetchesErr joins the client and partition errors of a poll.
func fetchesErr(fetches kgo.Fetches) error {
	if err := fetches.Err0(); err != nil {
		return err
	}
	var errs []error
	fetches.EachError(func(t string, p int32, err error) {
		errs = append(errs, fmt.Errorf("topic %q partition %d: %w", t, p, err))
	})
	return errors.Join(errs...)
}

func (c consumer) slowDown(ctx context.Context) {
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c consumer) close() {
	log := slog.With("op", makeOp(c.opPrefix, "close"))

	log.Info("closing consumer...")
	c.cl.Close()
	log.Info("consumer is closed")
}

// A ProductsConsumer saves the ingested products through the core
// service.
type ProductsConsumer struct {
	opPrefix string
	consumer consumer
	saver    port.ProductsSaver
	decoder  Decoder
}

func NewProductsConsumer(opts ...ConsumerOpt) (pc ProductsConsumer, err error) {
	const op = "NewProductsConsumer"

	var options consumerOpts
	if err := options.apply(opts...); err != nil {
		return pc, opErr(err, op)
	}

	if options.cl == nil || options.decoder == nil || options.productsSaver == nil {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	pc.opPrefix = "ProductsConsumer"
	pc.saver = options.productsSaver
	pc.decoder = options.decoder
	pc.consumer = consumer{
		opPrefix: pc.opPrefix,
		cl:       options.cl,
		handle:   pc.saveBatch,
		delay:    slowDownDelay,
	}
	return pc, nil
}

func (c ProductsConsumer) Run(ctx context.Context) {
	c.consumer.run(ctx)
}

func (c ProductsConsumer) Close() {
	c.consumer.close()
}

func (c ProductsConsumer) saveBatch(ctx context.Context, fetches kgo.Fetches) error {
	const op = "saveBatch"

	products := c.collect(fetches)
	if len(products) == 0 {
		return nil
	}

	if err := c.saver.SaveProducts(ctx, products); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

// collect decodes the batch. Undecodable and invalid records are logged
// and skipped so that a poison record does not block the partition. A
// product repeated in the batch keeps its first position and its latest
// value.
func (c ProductsConsumer) collect(fetches kgo.Fetches) []domain.Product {
	log := slog.With("op", makeOp(c.opPrefix, "collect"))

	var products []domain.Product
	pos := make(map[string]int)

	fetches.EachRecord(func(r *kgo.Record) {
		var s schema.ProductV1
		if err := c.decoder.Decode(r.Value, &s); err != nil {
			log.Error("failed to decode value",
				"topic", r.Topic, "offset", r.Offset, "err", err)
			return
		}

		p := schemaV1ToProduct(s)
		if !p.Valid() {
			log.Warn("invalid product is skipped",
				"topic", r.Topic, "offset", r.Offset, "id", p.ID)
			return
		}

		if i, ok := pos[p.ID]; ok {
			products[i] = p
			return
		}
		pos[p.ID] = len(products)
		products = append(products, p)
	})
	return products
}
