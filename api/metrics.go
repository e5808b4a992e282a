package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	boardTracerName  = "kanban-api/api"
	boardSpanName    = "board.fetch"
	boardEventName   = "board.request"
	boardEventDomain = "kanban"
	boardRoute       = "/api/workspaces/:id"
)

// boardRequestMetrics collects per-stage timings for the board fetch path
// and emits them both as a span and as a structured log event.
type boardRequestMetrics struct {
	logger          *log.Logger
	span            trace.Span
	start           time.Time
	authDuration    time.Duration
	fetchDuration   time.Duration
	encodeDuration  time.Duration
	columnsReturned int
	cardsReturned   int
	errorStage      string
}

func newBoardRequestMetrics(ctx context.Context, logger *log.Logger) (*boardRequestMetrics, context.Context) {
	m := &boardRequestMetrics{logger: logger, start: time.Now()}
	spanCtx, span := otel.Tracer(boardTracerName).Start(ctx, boardSpanName)
	m.span = span
	return m, spanCtx
}

func (m *boardRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration > 0 {
		m.authDuration = duration
	}
}

func (m *boardRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration > 0 {
		m.fetchDuration = duration
	}
}

func (m *boardRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration > 0 {
		m.encodeDuration = duration
	}
}

func (m *boardRequestMetrics) SetBoardSize(columns, cards int) {
	if columns >= 0 {
		m.columnsReturned = columns
	}
	if cards >= 0 {
		m.cardsReturned = cards
	}
}

func (m *boardRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log finishes the span and writes the observability event. It must be
// called exactly once, after the response status is known.
func (m *boardRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("http.route", boardRoute),
		attribute.Int("http.status_code", status),
		attribute.Float64("kanban.board.total_ms", durationToMillis(time.Since(m.start))),
		attribute.Int("kanban.board.columns_returned", m.columnsReturned),
		attribute.Int("kanban.board.cards_returned", m.cardsReturned),
	}
	if m.authDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.board.auth_ms", durationToMillis(m.authDuration)))
	}
	if m.fetchDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.board.fetch_ms", durationToMillis(m.fetchDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.board.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("kanban.board.error_stage", m.errorStage))
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		m.span.AddEvent("observability.event")
		if err != nil || status >= http.StatusInternalServerError {
			m.span.SetStatus(codes.Error, m.errorStage)
			if err != nil {
				m.span.RecordError(err)
			}
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}
	severityText, severityNumber := severityForStatus(status, err)
	fields := log.Fields{
		"event.name":      boardEventName,
		"event.domain":    boardEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info("observability.event")
}

// severityForStatus maps a response to otel log severity text and number.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
