package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/emails/logger"
)

var (
	meter = otel.GetMeterProvider().Meter("github.com/pure-golang/emails/httpserver/middleware")
	// nolint:errcheck // Sync OpenTelemetry instruments never return errors
	requestsCount, _   = meter.Int64Counter("mail_api.request_count")
	requestTimeHist, _ = meter.Int64Histogram("mail_api.request_time", metric.WithUnit("ms"))
	tracer             = otel.Tracer("github.com/pure-golang/emails/httpserver/middleware")
)

// Monitoring traces requests, records request metrics and puts a request
// logger carrying the trace id into the context. Bodies are not recorded:
// send requests carry recipient addresses.
func Monitoring(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := r.Method + " " + r.URL.Path
		ctx, span := tracer.Start(ctx, route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		log := slog.Default().With("method", r.Method, "path", r.URL.Path)
		if span.SpanContext().HasTraceID() {
			log = log.With("trace_id", traceID)
			w.Header().Set("X-Trace-Id", traceID)
		}

		attrs := semconv.NetAttributesFromHTTPRequest("tcp", r)
		attrs = append(attrs, semconv.HTTPServerAttributesFromHTTPRequest("mail-api", r.URL.Path, r)...)
		attrs = append(attrs, attribute.String("http.request.header.User-Agent", r.UserAgent()))

		srw := newStatusRecorder(w)
		next.ServeHTTP(srw, r.WithContext(logger.NewContext(ctx, log)))

		span.SetAttributes(append(attrs, attribute.Int("http.response.status", srw.status))...)
		labels := []attribute.KeyValue{attribute.String("http.route", route)}
		requestsCount.Add(ctx, 1, metric.WithAttributes(append(labels, attribute.Int("http.response.code", srw.status))...))
		requestTimeHist.Record(ctx, time.Since(started).Milliseconds(), metric.WithAttributes(labels...))

		if srw.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(srw.status))
			return
		}
		span.SetStatus(codes.Ok, "")
	})
}

// statusRecorder keeps the status sent through WriteHeader or implied by Write.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
