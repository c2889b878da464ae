package eventstream

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/registrarkit/enroll/persistence/eventstream"

// WithInstrumentation wraps a [Store] so that every operation produces an
// OpenTelemetry span and the append/read volume is counted.
func WithInstrumentation(
	next Store,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (Store, error) {
	meter := mp.Meter(instrumentationName)

	appends, err := meter.Int64Counter(
		"eventstream.appends",
		metric.WithDescription("The number of records appended to streams."),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	conflicts, err := meter.Int64Counter(
		"eventstream.conflicts",
		metric.WithDescription("The number of appends rejected due to an optimistic concurrency conflict."),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, err
	}

	reads, err := meter.Int64Counter(
		"eventstream.records_read",
		metric.WithDescription("The number of records read from streams."),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &instrumentedStore{
		next:      next,
		tracer:    tp.Tracer(instrumentationName),
		appends:   appends,
		conflicts: conflicts,
		reads:     reads,
	}, nil
}

type instrumentedStore struct {
	next      Store
	tracer    trace.Tracer
	appends   metric.Int64Counter
	conflicts metric.Int64Counter
	reads     metric.Int64Counter
}

func (s *instrumentedStore) Append(
	ctx context.Context,
	streamID string,
	records [][]byte,
	expectedVersion uint64,
) error {
	ctx, span := s.tracer.Start(
		ctx,
		"eventstream.append",
		trace.WithAttributes(
			attribute.String("stream_id", streamID),
			attribute.Int64("expected_version", int64(expectedVersion)),
			attribute.Int("record_count", len(records)),
		),
	)
	defer span.End()

	err := s.next.Append(ctx, streamID, records, expectedVersion)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, ErrConflict) {
			s.conflicts.Add(ctx, 1)
		}

		return err
	}

	s.appends.Add(ctx, int64(len(records)))

	return nil
}

func (s *instrumentedStore) Read(
	ctx context.Context,
	streamID string,
	fromVersion uint64,
) ([]Record, error) {
	ctx, span := s.tracer.Start(
		ctx,
		"eventstream.read",
		trace.WithAttributes(
			attribute.String("stream_id", streamID),
			attribute.Int64("from_version", int64(fromVersion)),
		),
	)
	defer span.End()

	records, err := s.next.Read(ctx, streamID, fromVersion)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.reads.Add(ctx, int64(len(records)))

	return records, nil
}

func (s *instrumentedStore) CurrentVersion(ctx context.Context, streamID string) (uint64, error) {
	ctx, span := s.tracer.Start(
		ctx,
		"eventstream.current_version",
		trace.WithAttributes(
			attribute.String("stream_id", streamID),
		),
	)
	defer span.End()

	ver, err := s.next.CurrentVersion(ctx, streamID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int64("version", int64(ver)))

	return ver, nil
}

func (s *instrumentedStore) Exists(ctx context.Context, streamID string) (bool, error) {
	ctx, span := s.tracer.Start(
		ctx,
		"eventstream.exists",
		trace.WithAttributes(
			attribute.String("stream_id", streamID),
		),
	)
	defer span.End()

	ok, err := s.next.Exists(ctx, streamID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	return ok, nil
}
