// Package observability wires OpenTelemetry tracing and metrics.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg.Tracing)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "auth.validate")
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg.Metrics)
//	defer mp.Shutdown(ctx)
//
//	m, err := observability.NewAuthMetrics(observability.Meter("oidcauth"))
//	m.RecordAttempt(ctx, observability.OutcomeAuthenticated, elapsed)
//
// Health:
//
//	health := observability.NewServiceHealth("oidc-demo", version.GetShortVersion())
//	health.AddComponent(verifier.CheckHealth(ctx))
package observability
