package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const lokiPushPath = "/loki/api/v1/push"

// LokiLogger logs through zap with trace correlation and, when a Loki URL is
// configured, ships a copy of each entry to Loki from a background worker.
type LokiLogger struct {
	Logger      *otelzap.Logger
	ServiceName string
	lokiURL     string
	httpClient  *http.Client
	entries     chan LokiLogEntry
	done        chan struct{}

	// mu guards closed and the send on entries against Close.
	mu     sync.RWMutex
	closed bool
}

type LokiLogEntry struct {
	Streams []LokiStream `json:"streams"`
}

type LokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

func NewLokiLogger(serviceName, lokiURL string) (*LokiLogger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"

	zapLogger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	return newLokiLogger(zapLogger, serviceName, lokiURL), nil
}

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *LokiLogger {
	return FromZap(zap.NewNop(), "test")
}

// FromZap wraps an existing zap logger without Loki shipping.
func FromZap(zapLogger *zap.Logger, serviceName string) *LokiLogger {
	return newLokiLogger(zapLogger, serviceName, "")
}

func newLokiLogger(zapLogger *zap.Logger, serviceName, lokiURL string) *LokiLogger {
	l := &LokiLogger{
		Logger:      otelzap.New(zapLogger),
		ServiceName: serviceName,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}

	if lokiURL != "" {
		l.lokiURL = strings.TrimRight(lokiURL, "/") + lokiPushPath
		l.entries = make(chan LokiLogEntry, 256)
		l.done = make(chan struct{})

		go l.run()
	}

	return l
}

// Zap returns the underlying zap logger.
func (l *LokiLogger) Zap() *zap.Logger {
	return l.Logger.Logger
}

func (l *LokiLogger) Enabled() bool {
	return l.entries != nil
}

// Close flushes pending Loki entries and syncs the zap logger. Entries
// logged after Close still reach zap but are no longer shipped.
func (l *LokiLogger) Close() error {
	l.mu.Lock()
	wasClosed := l.closed
	l.closed = true
	if !wasClosed && l.entries != nil {
		close(l.entries)
	}
	l.mu.Unlock()

	if !wasClosed && l.entries != nil {
		<-l.done
	}

	return l.Logger.Sync()
}

func (l *LokiLogger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields...)
}

func (l *LokiLogger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields...)
}

func (l *LokiLogger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields...)
}

func (l *LokiLogger) log(ctx context.Context, level zapcore.Level, msg string, fields ...zap.Field) {
	fields = append(fields, zap.String("service", l.ServiceName))

	switch level {
	case zapcore.ErrorLevel:
		l.Logger.Ctx(ctx).Error(msg, fields...)
	case zapcore.WarnLevel:
		l.Logger.Ctx(ctx).Warn(msg, fields...)
	default:
		l.Logger.Ctx(ctx).Info(msg, fields...)
	}

	l.ship(ctx, level, msg, fields)
}

// ship queues an entry for Loki. Entries are dropped when the queue is full.
func (l *LokiLogger) ship(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) {
	if l.entries == nil {
		return
	}

	entry, err := l.buildEntry(ctx, level, msg, fields)
	if err != nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return
	}

	select {
	case l.entries <- entry:
	default:
	}
}

func (l *LokiLogger) buildEntry(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) (LokiLogEntry, error) {
	now := time.Now()

	logData := map[string]interface{}{
		"timestamp": now.Format(time.RFC3339Nano),
		"level":     level.String(),
		"message":   msg,
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logData["trace_id"] = span.SpanContext().TraceID().String()
		logData["span_id"] = span.SpanContext().SpanID().String()
	}

	for _, field := range fields {
		logData[field.Key] = fieldValue(field)
	}

	line, err := json.Marshal(logData)
	if err != nil {
		return LokiLogEntry{}, err
	}

	return LokiLogEntry{
		Streams: []LokiStream{
			{
				Stream: map[string]string{
					"service": l.ServiceName,
					"level":   level.String(),
				},
				Values: [][]string{
					{fmt.Sprintf("%d", now.UnixNano()), string(line)},
				},
			},
		},
	}, nil
}

func fieldValue(field zap.Field) interface{} {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return field.Integer
	case zapcore.BoolType:
		return field.Integer == 1
	case zapcore.Float64Type:
		return math.Float64frombits(uint64(field.Integer))
	case zapcore.DurationType:
		return time.Duration(field.Integer).String()
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
	}

	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}

	return field.String
}

func (l *LokiLogger) run() {
	defer close(l.done)

	for entry := range l.entries {
		l.push(entry)
	}
}

func (l *LokiLogger) push(entry LokiLogEntry) {
	body, err := json.Marshal(entry)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, l.lokiURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
}
