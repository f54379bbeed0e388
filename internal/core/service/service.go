package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/internal/core/port"
)

const (
	DefaultMaxSessions = 10000
	stateTimeout       = 5 * time.Second
)

var (
	_ port.ProductsSender     = (*Service)(nil)
	_ port.ProductsSaver      = (*Service)(nil)
	_ port.CatalogBrowser     = (*Service)(nil)
	_ port.FilterEditor       = (*Service)(nil)
	_ port.FavouritesManager  = (*Service)(nil)
	_ port.CartManager        = (*Service)(nil)
	_ port.PreferencesManager = (*Service)(nil)
	_ port.Explorer           = (*Service)(nil)
)

type Opt func(*Service)

func ProductsProducerOpt(p port.ProductsProducer) Opt {
	return func(s *Service) { s.productsProducer = p }
}

func ProductsStorageOpt(ps port.ProductsStorage) Opt {
	return func(s *Service) { s.productsStorage = ps }
}

func ClientEventsProducerOpt(p port.ClientEventsProducer) Opt {
	return func(s *Service) { s.eventsProducer = p }
}

func CatalogMetricsOpt(m port.CatalogMetrics) Opt {
	return func(s *Service) { s.metrics = m }
}

func DefaultThemeOpt(t domain.Theme) Opt {
	return func(s *Service) {
		if t.Valid() {
			s.defaultTheme = t
		}
	}
}

func ClockOpt(now func() time.Time) Opt {
	return func(s *Service) { s.now = now }
}

// MaxSessionsOpt bounds the sessions held in memory. The least recently
// used session is evicted first and restored from the state store on
// its next access. Non-positive n keeps [DefaultMaxSessions].
func MaxSessionsOpt(n int) Opt {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

type Service struct {
	source           port.ProductsSource
	state            port.KeyValueStore
	productsProducer port.ProductsProducer
	productsStorage  port.ProductsStorage
	eventsProducer   port.ClientEventsProducer
	metrics          port.CatalogMetrics

	defaultTheme domain.Theme
	now          func() time.Time
	maxSessions  int

	catalog  catalogState
	sessMu   sync.Mutex
	sessions *lru.Cache[string, *session]
}

func New(
	source port.ProductsSource, state port.KeyValueStore, opts ...Opt,
) *Service {
	const op = "service.New"

	if source == nil || state == nil {
		panic(fmt.Errorf("%s: source and state are required", op)) // develop mistake
	}

	s := &Service{
		source:       source,
		state:        state,
		defaultTheme: domain.ThemeLight,
		now:          time.Now,
		maxSessions:  DefaultMaxSessions,
		catalog:      catalogState{loading: true},
	}
	for _, opt := range opts {
		opt(s)
	}

	sessions, err := lru.New[string, *session](s.maxSessions)
	if err != nil {
		panic(fmt.Errorf("%s: %w", op, err)) // develop mistake
	}
	s.sessions = sessions
	return s
}

func (s *Service) SendProducts(ctx context.Context, ps []domain.Product) error {
	const op = "Service.SendProducts"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.productsProducer == nil {
		return fmt.Errorf("%s: products producer: %w", op, domain.ErrUnavailable)
	}

	err := s.productsProducer.ProduceProducts(ctx, ps)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) SaveProducts(ctx context.Context, ps []domain.Product) error {
	const op = "Service.SaveProducts"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.productsStorage == nil {
		return fmt.Errorf("%s: products storage: %w", op, domain.ErrUnavailable)
	}

	err := s.productsStorage.StoreProducts(ctx, ps)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// persist writes v under the session key. The write outlives the
// request, a client gone away must not lose the change. Failures are
// logged only, the in-memory value stays authoritative.
func (s *Service) persist(
	ctx context.Context, sessionID, concern string, v any,
) {
	const op = "Service.persist"
	log := slog.With("op", op, "session", sessionID, "concern", concern)

	data, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to encode state", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateTimeout)
	defer cancel()

	if err := s.state.Set(ctx, stateKey(sessionID, concern), data); err != nil {
		log.Error("failed to save state", "err", err)
	}
}

// restore reads the session key into v. It reports false when the key
// is missing or unreadable, leaving v untouched.
func (s *Service) restore(
	ctx context.Context, sessionID, concern string, v any,
) bool {
	const op = "Service.restore"
	log := slog.With("op", op, "session", sessionID, "concern", concern)

	data, ok, err := s.state.Get(ctx, stateKey(sessionID, concern))
	if err != nil {
		log.Error("failed to load state", "err", err)
		return false
	}
	if !ok {
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		log.Error("failed to decode state", "err", err)
		return false
	}
	return true
}

func (s *Service) emit(ctx context.Context, evts ...domain.ClientEvent) {
	const op = "Service.emit"

	if s.eventsProducer == nil || len(evts) == 0 {
		return
	}

	if err := s.eventsProducer.ProduceEvents(ctx, evts...); err != nil {
		slog.Warn("failed to produce client events", "op", op, "err", err)
	}
}

func (s *Service) event(
	sessionID string, kind domain.ClientEventKind, productID string, qty int,
) domain.ClientEvent {
	return domain.ClientEvent{
		SessionID:  sessionID,
		Kind:       kind,
		ProductID:  productID,
		Quantity:   qty,
		OccurredAt: s.now(),
	}
}

func stateKey(sessionID, concern string) string {
	return sessionID + ":" + concern
}
