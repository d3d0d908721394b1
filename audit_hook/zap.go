package audithook

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapRecorder writes audit events as structured zap log entries. Warnings and
// failures are logged at warn level, everything else at info.
type ZapRecorder struct {
	logger *zap.Logger
}

// NewZapRecorder returns a Recorder writing to logger under the "audit" name.
func NewZapRecorder(logger *zap.Logger) *ZapRecorder {
	return &ZapRecorder{logger: logger.Named("audit")}
}

// Record implements Recorder.
func (z *ZapRecorder) Record(_ context.Context, evt *AuditEvent) error {
	fields := []zap.Field{
		zap.String("action", evt.Action),
		zap.String("resource", evt.Resource),
		zap.String("category", evt.Category),
		zap.String("outcome", evt.Outcome),
		zap.String("severity", evt.Severity),
	}
	if evt.ResourceID != "" {
		fields = append(fields, zap.String("resource_id", evt.ResourceID))
	}
	if evt.ActorID != "" {
		fields = append(fields, zap.String("actor_id", evt.ActorID))
	}
	if evt.Reason != "" {
		fields = append(fields, zap.String("reason", evt.Reason))
	}
	if len(evt.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", evt.Metadata))
	}

	level := zapcore.InfoLevel
	if evt.Severity != SeverityInfo || evt.Outcome == OutcomeFailure {
		level = zapcore.WarnLevel
	}
	if ce := z.logger.Check(level, "audit event"); ce != nil {
		ce.Write(fields...)
	}
	return nil
}
