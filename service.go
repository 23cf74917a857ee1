/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/suparena/entityservice/cache"
	"github.com/suparena/entityservice/datastore"
	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/notify"
	"github.com/suparena/entityservice/storagemodels"
)

const (
	DefaultPageSize    = 10
	DefaultMaxPageSize = 100
	DefaultRetryDelay  = time.Second
)

// State is the connection state of a Service.
type State int

const (
	StateUnconfigured State = iota
	StateInitialized
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateInitialized:
		return "initialized"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Settings tune the generic actions.
type Settings struct {
	// IDField is the identity field name seen by callers. Adapters always see storagemodels.IDKey.
	IDField string `mapstructure:"idField" yaml:"idField"`
	// PageSize is the default page size of the list action
	PageSize int `mapstructure:"pageSize" yaml:"pageSize" validate:"gte=0"`
	// MaxPageSize caps the page size of the list action
	MaxPageSize int `mapstructure:"maxPageSize" yaml:"maxPageSize" validate:"gte=0"`
	// MaxLimit caps the limit of find. Zero means no cap.
	MaxLimit int `mapstructure:"maxLimit" yaml:"maxLimit" validate:"gte=0"`
	// IDFormat is an optional strfmt format name (e.g. "uuid") scalar ids must satisfy
	IDFormat string `mapstructure:"idFormat" yaml:"idFormat"`
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		IDField:     storagemodels.IDKey,
		PageSize:    DefaultPageSize,
		MaxPageSize: DefaultMaxPageSize,
	}
}

func (s Settings) withDefaults() Settings {
	if s.IDField == "" {
		s.IDField = storagemodels.IDKey
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	if s.MaxPageSize <= 0 {
		s.MaxPageSize = DefaultMaxPageSize
	}
	return s
}

// Hook observes a mutation after it was persisted. Errors are logged and never fail the mutation.
type Hook func(ctx context.Context, entity storagemodels.Entity) error

// Hooks are the optional entity lifecycle callbacks.
type Hooks struct {
	Created Hook
	Updated Hook
	Removed Hook
}

// EntityValidator checks a document before it is created.
type EntityValidator func(ctx context.Context, doc storagemodels.Entity) error

// Service exposes generic CRUD operations for one collection through a datastore.Adapter.
type Service struct {
	name       string
	version    string
	fullName   string
	collection string
	settings   Settings

	adapter   datastore.Adapter
	logger    *zap.Logger
	notifier  notify.Notifier
	cacher    cache.Cacher
	hooks     Hooks
	validator EntityValidator
	schema    *gojsonschema.Schema
	newID     func() string

	retryDelay time.Duration
	registerer prometheus.Registerer
	metrics    *Metrics

	mu        sync.RWMutex
	state     State
	stopWatch context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

// WithVersion prefixes the full name, e.g. version "v2" and name "posts" give "v2.posts".
func WithVersion(version string) Option {
	return func(s *Service) {
		s.version = version
	}
}

// WithCollection sets the collection the adapter operates on. Defaults to the service name.
func WithCollection(collection string) Option {
	return func(s *Service) {
		s.collection = collection
	}
}

func WithSettings(settings Settings) Option {
	return func(s *Service) {
		s.settings = settings
	}
}

// WithIDField renames the identity field callers use.
func WithIDField(field string) Option {
	return func(s *Service) {
		s.settings.IDField = field
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNotifier sets the broadcaster used for cache invalidation events.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithCacher enables result caching of the get action.
func WithCacher(c cache.Cacher) Option {
	return func(s *Service) {
		s.cacher = c
	}
}

func WithHooks(h Hooks) Option {
	return func(s *Service) {
		s.hooks = h
	}
}

func WithEntityValidator(v EntityValidator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// WithEntitySchema validates created documents against a compiled JSON schema.
func WithEntitySchema(schema *gojsonschema.Schema) Option {
	return func(s *Service) {
		s.schema = schema
	}
}

// WithIDGenerator replaces the UUID generator used for documents without identity.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

// WithRetryDelay sets the fixed delay between connect attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

// WithMetrics registers the service metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) {
		s.registerer = reg
	}
}

// New creates a service bound to adapter. A nil adapter leaves the service unconfigured and
// Start reports it. Otherwise the adapter is initialized once.
func New(name string, adapter datastore.Adapter, opts ...Option) (*Service, error) {
	if name == "" {
		return nil, errors.NewConfigurationError("name", "service name is required")
	}

	s := &Service{
		name:       name,
		settings:   DefaultSettings(),
		adapter:    adapter,
		retryDelay: DefaultRetryDelay,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.settings = s.settings.withDefaults()
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.collection == "" {
		s.collection = name
	}
	s.fullName = name
	if s.version != "" {
		s.fullName = s.version + "." + name
	}
	s.logger = s.logger.With(zap.String("service", s.fullName))

	if f := s.settings.IDFormat; f != "" && !strfmt.Default.ContainsName(f) {
		return nil, errors.NewConfigurationError("idFormat", fmt.Sprintf("unknown id format %q", f))
	}

	metrics, err := NewMetrics(s.registerer)
	if err != nil {
		return nil, err
	}
	s.metrics = metrics

	if adapter == nil {
		s.state = StateUnconfigured
		return s, nil
	}

	if err := adapter.Init(datastore.ServiceInfo{
		Name:       s.name,
		FullName:   s.fullName,
		Collection: s.collection,
		Logger:     s.logger,
	}); err != nil {
		return nil, err
	}
	s.state = StateInitialized
	return s, nil
}

func (s *Service) Name() string { return s.name }

// FullName is the versioned name used for cache keys and broadcast subjects.
func (s *Service) FullName() string { return s.fullName }

func (s *Service) Collection() string { return s.collection }

func (s *Service) Settings() Settings { return s.settings }

func (s *Service) Adapter() datastore.Adapter { return s.adapter }

func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Service) store() (datastore.Adapter, error) {
	if s.adapter == nil {
		return nil, errors.NewConfigurationError("adapter", "no adapter set")
	}
	return s.adapter, nil
}
