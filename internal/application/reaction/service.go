// Package reaction provides the application-level service that runs reactions.
// It sits between the HTTP/CLI surfaces and the domain engine, and owns the
// recognize, react, persist, cache and publish sequence.
package reaction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	domainRxn "github.com/turtacn/ARChemistry/internal/domain/reaction"
	"github.com/turtacn/ARChemistry/internal/infrastructure/database/redis"
	"github.com/turtacn/ARChemistry/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ARChemistry/internal/infrastructure/recognition"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage"
	"github.com/turtacn/ARChemistry/internal/rendering"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// Service defines the reaction application operations.
type Service interface {
	Reagents(ctx context.Context) []domainRxn.Reagent
	React(ctx context.Context, input *ReactInput) (*ReactResult, error)
	ProcessImage(ctx context.Context, input *ProcessImageInput) (*ReactResult, error)
	LoadGraph(ctx context.Context, key string) (*graph.MolecularGraph, error)
	ListGraphs(ctx context.Context, prefix string) ([]string, error)
	DeleteGraph(ctx context.Context, key string) error
	Scene(ctx context.Context, key string, opts rendering.Options) (*rendering.Scene, error)
}

// ProductCache memoises products by reactant fingerprint and reagent.
// *redis.ProductCache satisfies it.
type ProductCache interface {
	GetOrCompute(ctx context.Context, key string, compute func() (*graph.MolecularGraph, error)) (*graph.MolecularGraph, bool, error)
}

// EventPublisher announces finished reactions.  *kafka.ReactionEvents
// satisfies it.
type EventPublisher interface {
	ReactionCompleted(ctx context.Context, payload kafka.ReactionCompletedPayload) error
}

// ReactInput contains input for running a reaction on a known structure.
type ReactInput struct {
	Reactant    *graph.MolecularGraph
	ReagentName string
	// Persist saves reactant and product to the graph store.
	Persist bool
	// Strict rejects reagent names outside the catalog instead of returning
	// an unchanged copy.
	Strict bool
	// RequestID correlates logs and events; generated when empty.
	RequestID string
}

// ProcessImageInput contains input for the photograph-to-product flow.
type ProcessImageInput struct {
	Image       recognition.Image
	ReagentName string
	Persist     bool
	Strict      bool
}

// ReactResult is the outcome of one reaction.
type ReactResult struct {
	RequestID   string                `json:"request_id"`
	Reactant    *graph.MolecularGraph `json:"-"`
	Product     *graph.MolecularGraph `json:"-"`
	ReactantKey string                `json:"reactant_key,omitempty"`
	ProductKey  string                `json:"product_key,omitempty"`
	Report      domainRxn.Report      `json:"report"`
	CacheHit    bool                  `json:"cache_hit"`
	// RemoteProduct is the product the recognition backend computed, when it
	// sent one.  The local engine result in Product is authoritative.
	RemoteProduct *graph.MolecularGraph `json:"-"`
}

// Option configures the service.
type Option func(*serviceImpl)

// WithRecognizer sets the recognizer used by ProcessImage.  The default is
// recognition.Placeholder.
func WithRecognizer(r recognition.Recognizer) Option {
	return func(s *serviceImpl) {
		if r != nil {
			s.recognizer = r
		}
	}
}

// WithCache enables product caching.
func WithCache(c ProductCache) Option {
	return func(s *serviceImpl) { s.cache = c }
}

// WithEvents enables reaction.completed publishing.
func WithEvents(p EventPublisher) Option {
	return func(s *serviceImpl) { s.events = p }
}

// WithMetrics records reaction, storage and cache metrics.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

// WithStoreBackend labels storage metrics, e.g. "file" or "minio".
func WithStoreBackend(name string) Option {
	return func(s *serviceImpl) { s.backend = name }
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	engine     *domainRxn.Engine
	store      storage.GraphStore
	recognizer recognition.Recognizer
	cache      ProductCache
	events     EventPublisher
	metrics    *prometheus.AppMetrics
	backend    string
	logger     logging.Logger
	newID      func() string
}

// NewService creates a new reaction application service.  store may be nil,
// in which case persistence and graph lookups are unavailable.
func NewService(engine *domainRxn.Engine, store storage.GraphStore, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if engine == nil {
		engine = domainRxn.NewEngine(logger)
	}
	s := &serviceImpl{
		engine:     engine,
		store:      store,
		recognizer: recognition.Placeholder{},
		backend:    "default",
		logger:     logger.Named("reaction_service"),
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) Reagents(_ context.Context) []domainRxn.Reagent {
	return domainRxn.Catalog()
}

// resolveReagent maps a name to a catalog entry.  Outside strict mode an
// unknown name becomes a KindUnknown reagent, which the engine treats as a
// no-op.
func (s *serviceImpl) resolveReagent(name string, strict bool) (domainRxn.Reagent, error) {
	if name == "" {
		return domainRxn.Reagent{}, errors.New(errors.ErrCodeValidation, "reagent name is required")
	}
	if strict {
		return domainRxn.ParseReagent(name)
	}
	if r, err := domainRxn.ParseReagent(name); err == nil {
		return r, nil
	}
	return domainRxn.NewReagent(name, domainRxn.KindUnknown.String()), nil
}

func (s *serviceImpl) React(ctx context.Context, input *ReactInput) (*ReactResult, error) {
	if input == nil || input.Reactant == nil {
		return nil, errors.New(errors.ErrCodeValidation, "reactant is required")
	}
	if err := input.Reactant.Validate(); err != nil {
		return nil, err
	}
	reagent, err := s.resolveReagent(input.ReagentName, input.Strict)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestID := input.RequestID
	if requestID == "" {
		requestID = s.newID()
	}
	log := s.logger.With(logging.String("request_id", requestID))

	start := time.Now()
	product, hit, err := s.execute(ctx, input.Reactant, reagent)
	if err != nil {
		return nil, err
	}
	report := s.engine.Report(input.Reactant, product, reagent)
	if s.metrics != nil {
		s.metrics.RecordReaction(reagent.Name, reagent.ReactionType, report.ConvertedBonds, product.AtomCount(), time.Since(start))
	}

	result := &ReactResult{
		RequestID: requestID,
		Reactant:  input.Reactant,
		Product:   product,
		Report:    report,
		CacheHit:  hit,
	}

	if input.Persist {
		if err := s.persist(ctx, result); err != nil {
			log.Error("failed to persist reaction graphs", logging.Err(err))
			return nil, err
		}
	}

	s.publish(ctx, log, result)

	log.Info("reaction completed",
		logging.String("reagent", reagent.Name),
		logging.String("reactant_formula", report.ReactantFormula),
		logging.String("product_formula", report.ProductFormula),
		logging.Int("converted_bonds", report.ConvertedBonds),
		logging.Bool("cache_hit", hit),
		logging.Duration("duration", time.Since(start)))
	return result, nil
}

// execute runs the engine, going through the cache when one is configured.
func (s *serviceImpl) execute(ctx context.Context, reactant *graph.MolecularGraph, reagent domainRxn.Reagent) (*graph.MolecularGraph, bool, error) {
	compute := func() (*graph.MolecularGraph, error) {
		return s.engine.Execute(reactant, reagent), nil
	}
	if s.cache == nil || !reagent.Known() {
		p, _ := compute()
		return p, false, nil
	}
	product, hit, err := s.cache.GetOrCompute(ctx, redis.ProductKey(reactant, reagent.Name), compute)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.RecordCacheAccess("product", hit)
	}
	return product, hit, nil
}

func (s *serviceImpl) persist(ctx context.Context, result *ReactResult) error {
	key, err := s.save(ctx, storage.PrefixReactant, result.Reactant)
	if err != nil {
		return err
	}
	result.ReactantKey = key
	key, err = s.save(ctx, storage.PrefixProduct, result.Product)
	if err != nil {
		return err
	}
	result.ProductKey = key
	return nil
}

func (s *serviceImpl) save(ctx context.Context, prefix string, g *graph.MolecularGraph) (string, error) {
	if s.store == nil {
		return "", errors.New(errors.ErrCodeServiceUnavailable, "graph store is not configured")
	}
	start := time.Now()
	key, err := s.store.Save(ctx, prefix, g)
	s.recordStorage("save", err, start)
	return key, err
}

// publish announces result.  Delivery failures are logged and counted but do
// not fail the reaction.
func (s *serviceImpl) publish(ctx context.Context, log logging.Logger, result *ReactResult) {
	if s.events == nil {
		return
	}
	err := s.events.ReactionCompleted(ctx, kafka.ReactionCompletedPayload{
		RequestID:       result.RequestID,
		Reagent:         result.Report.Reagent,
		ReactionType:    result.Report.ReactionType,
		ReactantKey:     result.ReactantKey,
		ProductKey:      result.ProductKey,
		ReactantFormula: result.Report.ReactantFormula,
		ProductFormula:  result.Report.ProductFormula,
		ConvertedBonds:  result.Report.ConvertedBonds,
		CacheHit:        result.CacheHit,
	})
	if s.metrics != nil {
		s.metrics.RecordEvent(kafka.TopicReactionCompleted, err)
	}
	if err != nil {
		log.Warn("failed to publish reaction event", logging.Err(err))
	}
}

func (s *serviceImpl) ProcessImage(ctx context.Context, input *ProcessImageInput) (*ReactResult, error) {
	if input == nil || input.Image.Data == nil {
		return nil, errors.New(errors.ErrCodeValidation, "image is required")
	}
	if _, err := s.resolveReagent(input.ReagentName, input.Strict); err != nil {
		return nil, err
	}

	start := time.Now()
	rec, err := s.recognizer.Recognize(ctx, input.Image, input.ReagentName)
	if s.metrics != nil {
		s.metrics.RecordRecognition(err, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("recognition failed",
			logging.String("filename", input.Image.Filename),
			logging.String("code", errors.GetCode(err).String()),
			logging.Err(err))
		if s.metrics != nil {
			s.metrics.RecordError("recognition", errors.GetCode(err).String())
		}
		return nil, err
	}

	result, err := s.React(ctx, &ReactInput{
		Reactant:    rec.Reactant,
		ReagentName: input.ReagentName,
		Persist:     input.Persist,
		Strict:      input.Strict,
		RequestID:   rec.RequestID,
	})
	if err != nil {
		return nil, err
	}
	result.RemoteProduct = rec.RemoteProduct
	if rec.RemoteProduct != nil && rec.RemoteProduct.Fingerprint() != result.Product.Fingerprint() {
		s.logger.Debug("remote product differs from local product",
			logging.String("request_id", result.RequestID),
			logging.String("remote_formula", rec.RemoteProduct.Formula()),
			logging.String("local_formula", result.Product.Formula()))
	}
	return result, nil
}

func (s *serviceImpl) LoadGraph(ctx context.Context, key string) (*graph.MolecularGraph, error) {
	if s.store == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "graph store is not configured")
	}
	start := time.Now()
	g, err := s.store.Load(ctx, key)
	s.recordStorage("load", err, start)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *serviceImpl) ListGraphs(ctx context.Context, prefix string) ([]string, error) {
	if s.store == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "graph store is not configured")
	}
	if prefix != "" {
		if err := storage.ValidatePrefix(prefix); err != nil {
			return nil, err
		}
	}
	start := time.Now()
	keys, err := s.store.List(ctx, prefix)
	s.recordStorage("list", err, start)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (s *serviceImpl) DeleteGraph(ctx context.Context, key string) error {
	if s.store == nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "graph store is not configured")
	}
	start := time.Now()
	err := s.store.Delete(ctx, key)
	s.recordStorage("delete", err, start)
	return err
}

func (s *serviceImpl) Scene(ctx context.Context, key string, opts rendering.Options) (*rendering.Scene, error) {
	g, err := s.LoadGraph(ctx, key)
	if err != nil {
		return nil, err
	}
	scene := rendering.BuildScene(g, opts)
	if len(scene.Skipped) > 0 {
		s.logger.Warn("skipped bonds while building scene",
			logging.String("key", key),
			logging.Int("skipped", len(scene.Skipped)))
	}
	return scene, nil
}

func (s *serviceImpl) recordStorage(op string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordStorage(s.backend, op, err, time.Since(start))
	if err != nil && !errors.IsNotFound(err) {
		s.metrics.RecordError("storage", errors.GetCode(err).String())
	}
}
