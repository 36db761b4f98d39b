package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Lifecycle is what the shell and the HTTP server drive.
type Lifecycle interface {
	ProcessIncomingVehicle(ctx context.Context, in InputReader) (*EntryReceipt, error)
	ProcessExitingVehicle(ctx context.Context, in InputReader) (*ExitReceipt, error)
}

var (
	_ Lifecycle = (*Service)(nil)
	_ Lifecycle = (*InstrumentedService)(nil)
)

type InstrumentedService struct {
	*Service
	telemetry *TelemetryProvider

	// Metrics
	entryOperations   metric.Int64Counter
	exitOperations    metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	fareAmount        metric.Float64Histogram
}

func NewInstrumentedService(service *Service, telemetry *TelemetryProvider) (*InstrumentedService, error) {
	meter := telemetry.Meter()

	entryOperations, err := meter.Int64Counter("parking_entries_total",
		metric.WithDescription("Total number of vehicle entry operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	exitOperations, err := meter.Int64Counter("parking_exits_total",
		metric.WithDescription("Total number of vehicle exit operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_occupied_spots",
		metric.WithDescription("Spots occupied through this process"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("parking_operation_duration_seconds",
		metric.WithDescription("Duration of parking lifecycle operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	fareAmount, err := meter.Float64Histogram("parking_fare_amount",
		metric.WithDescription("Fares charged at exit"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedService{
		Service:           service,
		telemetry:         telemetry,
		entryOperations:   entryOperations,
		exitOperations:    exitOperations,
		occupancyGauge:    occupancyGauge,
		operationDuration: operationDuration,
		fareAmount:        fareAmount,
	}, nil
}

func (is *InstrumentedService) ProcessIncomingVehicle(ctx context.Context, in InputReader) (*EntryReceipt, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.entry")
	defer span.End()

	start := time.Now()

	receipt, err := is.Service.ProcessIncomingVehicle(ctx, in)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "entry"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("error_kind", string(KindOf(err))),
		)
	} else {
		labels = append(labels,
			attribute.String("status", "success"),
			attribute.String("category", receipt.Category.String()),
		)
		span.SetAttributes(
			attribute.Int("parking.spot_id", receipt.SpotID),
			attribute.Int("parking.ticket_id", receipt.Ticket.ID),
			attribute.String("vehicle.registration_number", receipt.VehicleID),
			attribute.Int("parking.discount_percent", receipt.DiscountPercent),
		)
		span.AddEvent("spot_allocated", trace.WithAttributes(
			attribute.Int("spot_id", receipt.SpotID),
		))
		if receipt.SpotPersistErr != nil {
			span.RecordError(receipt.SpotPersistErr, trace.WithAttributes(
				attribute.String("error_kind", string(KindCollaborator)),
			))
			labels = append(labels, attribute.Bool("spot_persisted", false))
		}
		is.occupancyGauge.Add(ctx, 1, metric.WithAttributes(
			attribute.String("category", receipt.Category.String()),
		))
	}

	is.entryOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	is.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return receipt, err
}

func (is *InstrumentedService) ProcessExitingVehicle(ctx context.Context, in InputReader) (*ExitReceipt, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.exit")
	defer span.End()

	start := time.Now()

	receipt, err := is.Service.ProcessExitingVehicle(ctx, in)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "exit"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("error_kind", string(KindOf(err))),
		)
	} else {
		category := receipt.Ticket.Spot.Category.String()
		labels = append(labels,
			attribute.String("status", "success"),
			attribute.String("category", category),
		)
		price := receipt.Price.InexactFloat64()
		span.SetAttributes(
			attribute.Int("parking.spot_id", receipt.SpotID),
			attribute.Int("parking.ticket_id", receipt.Ticket.ID),
			attribute.String("vehicle.registration_number", receipt.VehicleID),
			attribute.Float64("parking.fare", price),
			attribute.Int64("parking.duration_ms", receipt.Duration.Milliseconds()),
		)
		span.AddEvent("spot_released")
		is.occupancyGauge.Add(ctx, -1, metric.WithAttributes(
			attribute.String("category", category),
		))
		is.fareAmount.Record(ctx, price, metric.WithAttributes(
			attribute.String("category", category),
		))
	}

	is.exitOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	is.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return receipt, err
}
