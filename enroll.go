// Package enroll wires the enrollment system together: an event-sourced
// enrollment aggregate, the stores that persist its streams, and the
// command and query handlers that drive it.
//
// The sub-packages can be composed by hand; this package is a convenience
// for the common shape.
package enroll

import (
	"time"

	"github.com/registrarkit/enroll/enrollment"
	"github.com/registrarkit/enroll/persistence/driver/memory"
	"github.com/registrarkit/enroll/persistence/eventstream"
	"github.com/registrarkit/enroll/registrar"
	"go.uber.org/zap"
)

// An Option configures the system constructed by [New].
type Option func(*config)

type config struct {
	streams          eventstream.Store
	snapshots        eventstream.SnapshotStore
	snapshotInterval uint64
	publisher        registrar.EventPublisher
	notifier         registrar.NotificationSink
	logger           *zap.Logger
	handler          registrar.Config
}

// WithStreamStore is an [Option] that sets the event-stream store. The
// default is an in-memory store.
func WithStreamStore(s eventstream.Store) Option {
	if s == nil {
		panic("stream store must not be nil")
	}

	return func(c *config) {
		c.streams = s
	}
}

// WithSnapshotStore is an [Option] that sets the snapshot store. The default
// is an in-memory store.
func WithSnapshotStore(s eventstream.SnapshotStore) Option {
	if s == nil {
		panic("snapshot store must not be nil")
	}

	return func(c *config) {
		c.snapshots = s
	}
}

// WithoutSnapshots is an [Option] that disables snapshotting entirely. Every
// load replays the full event history.
func WithoutSnapshots() Option {
	return func(c *config) {
		c.snapshots = nil
	}
}

// WithSnapshotInterval is an [Option] that sets the number of events between
// snapshots.
func WithSnapshotInterval(n uint64) Option {
	return func(c *config) {
		c.snapshotInterval = n
	}
}

// WithPublisher is an [Option] that sets the publisher that delivers
// accepted events downstream.
func WithPublisher(p registrar.EventPublisher) Option {
	if p == nil {
		panic("publisher must not be nil")
	}

	return func(c *config) {
		c.publisher = p
	}
}

// WithNotifier is an [Option] that sets the sink notified of each accepted
// event.
func WithNotifier(n registrar.NotificationSink) Option {
	if n == nil {
		panic("notifier must not be nil")
	}

	return func(c *config) {
		c.notifier = n
	}
}

// WithLogger is an [Option] that sets the logger used throughout the system.
func WithLogger(logger *zap.Logger) Option {
	if logger == nil {
		panic("logger must not be nil")
	}

	return func(c *config) {
		c.logger = logger
	}
}

// WithAllowDuplicates is an [Option] that disables the courtesy
// duplicate-enrollment lookup. The store's version precondition still
// prevents two histories for the same identity.
func WithAllowDuplicates(allow bool) Option {
	return func(c *config) {
		c.handler.AllowDuplicates = allow
	}
}

// WithTermWindowYears is an [Option] that sets the window of years around
// the current date within which a requested term must fall.
func WithTermWindowYears(years int) Option {
	return func(c *config) {
		c.handler.TermWindowYears = years
	}
}

// WithClock is an [Option] that sets the time source, for tests.
func WithClock(clock func() time.Time) Option {
	if clock == nil {
		panic("clock must not be nil")
	}

	return func(c *config) {
		c.handler.Clock = clock
	}
}

// A System is a fully wired enrollment system.
type System struct {
	// Commands processes enrollment commands.
	Commands *registrar.Handler

	// Queries answers read-only enrollment lookups.
	Queries *registrar.QueryHandler

	// Repository is the underlying aggregate repository, for callers that
	// need direct access to state and history.
	Repository *enrollment.Repository
}

// New constructs an enrollment system.
//
// The student directory and course catalog are external collaborators and
// must be provided; everything else has a sensible default that can be
// overridden with options.
func New(
	students registrar.StudentDirectory,
	catalog registrar.CourseCatalog,
	options ...Option,
) *System {
	cfg := config{
		streams:   &memory.StreamStore{},
		snapshots: &memory.SnapshotStore{},
	}

	for _, opt := range options {
		opt(&cfg)
	}

	repo := &enrollment.Repository{
		Streams:          cfg.streams,
		Snapshots:        cfg.snapshots,
		SnapshotInterval: cfg.snapshotInterval,
		Logger:           cfg.logger,
	}

	return &System{
		Commands: registrar.NewHandler(
			repo,
			students,
			catalog,
			cfg.publisher,
			cfg.notifier,
			cfg.handler,
			cfg.logger,
		),
		Queries:    registrar.NewQueryHandler(repo),
		Repository: repo,
	}
}
