// Package tracing provides OpenTelemetry tracing integration.
//
// Deliveries are traced with one span per Deliver call, one child span per
// channel attempt and one span per bulk run.
//
//	shutdown := tracing.InitProvider()
//	defer func() { _ = shutdown(context.Background()) }()
//
//	ctx, span := tracing.StartSpan(ctx, "notify.Deliver")
//	defer span.End()
package tracing
