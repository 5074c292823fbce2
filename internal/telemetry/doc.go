// Package telemetry wraps OpenTelemetry SDK initialization, giving the
// embedding batch proxy a centralized TracerProvider and MeterProvider
// configuration. When telemetry is disabled, it falls back to noop
// implementations and connects to no external service.
package telemetry
