// Package audit mirrors pipeline events into the persistent audit log.
package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/logger"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

// Sink appends audit entries.
type Sink interface {
	AddLog(ctx context.Context, entry store.LogEntry) error
}

// Recorder stamps every entry with the run id.
type Recorder struct {
	sink   Sink
	runID  uuid.UUID
	logger *zap.Logger
}

func New(sink Sink, runID uuid.UUID, log *zap.Logger) *Recorder {
	return &Recorder{
		sink:   sink,
		runID:  runID,
		logger: logger.WithFields(log, zap.String(logger.FieldRunID, runID.String())),
	}
}

func (r *Recorder) RunID() uuid.UUID {
	return r.runID
}

// Component returns a Trail that logs and audits on behalf of name.
func (r *Recorder) Component(name string) *Trail {
	return &Trail{
		recorder:  r,
		component: name,
		logger:    logger.WithComponent(r.logger, name),
	}
}

// Trail writes each event to zap and to the audit sink.
type Trail struct {
	recorder  *Recorder
	component string
	logger    *zap.Logger
}

// Logger is the component logger for entries that should not be audited.
func (t *Trail) Logger() *zap.Logger {
	return t.logger
}

func (t *Trail) Info(ctx context.Context, msg string, fields ...zap.Field) {
	t.logger.Info(msg, fields...)
	t.record(ctx, store.LevelInfo, msg)
}

func (t *Trail) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	t.logger.Warn(msg, fields...)
	t.record(ctx, store.LevelWarning, msg)
}

func (t *Trail) Error(ctx context.Context, msg string, fields ...zap.Field) {
	t.logger.Error(msg, fields...)
	t.record(ctx, store.LevelError, msg)
}

func (t *Trail) record(ctx context.Context, level store.Level, msg string) {
	if t.recorder.sink == nil {
		return
	}

	err := t.recorder.sink.AddLog(ctx, store.LogEntry{
		RunID:     t.recorder.runID,
		Component: t.component,
		Level:     level,
		Message:   msg,
	})
	if err != nil {
		t.logger.Warn("failed to write audit entry", zap.Error(err))
	}
}
