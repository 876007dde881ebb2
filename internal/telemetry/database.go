package telemetry

import (
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	dbSystemKey    = "db.system"
	dbTableKey     = "db.table"
	dbOperationKey = "db.operation"
	dbStatementKey = "db.statement"

	spanKey      = "otel:span"
	startTimeKey = "otel:startTime"
)

// GORMTracingPlugin returns a GORM plugin that traces database operations
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{tracer: otel.Tracer("gorm")}
}

type tracingPlugin struct {
	tracer trace.Tracer
}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		name   string
		before func() error
		after  func() error
	}{
		{"query",
			func() error {
				return cb.Query().Before("gorm:query").Register("telemetry:before_query", p.before("SELECT"))
			},
			func() error { return cb.Query().After("gorm:query").Register("telemetry:after_query", p.after) }},
		{"create",
			func() error {
				return cb.Create().Before("gorm:create").Register("telemetry:before_create", p.before("INSERT"))
			},
			func() error { return cb.Create().After("gorm:create").Register("telemetry:after_create", p.after) }},
		{"update",
			func() error {
				return cb.Update().Before("gorm:update").Register("telemetry:before_update", p.before("UPDATE"))
			},
			func() error { return cb.Update().After("gorm:update").Register("telemetry:after_update", p.after) }},
		{"delete",
			func() error {
				return cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", p.before("DELETE"))
			},
			func() error { return cb.Delete().After("gorm:delete").Register("telemetry:after_delete", p.after) }},
		{"raw",
			func() error { return cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", p.before("RAW")) },
			func() error { return cb.Raw().After("gorm:raw").Register("telemetry:after_raw", p.after) }},
	}

	for _, s := range steps {
		if err := s.before(); err != nil {
			return fmt.Errorf("failed to register before_%s callback: %w", s.name, err)
		}
		if err := s.after(); err != nil {
			return fmt.Errorf("failed to register after_%s callback: %w", s.name, err)
		}
	}
	return nil
}

func (p *tracingPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		_, span := p.tracer.Start(ctx, "db."+strings.ToLower(operation),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String(dbSystemKey, db.Dialector.Name()),
				attribute.String(dbTableKey, table),
				attribute.String(dbOperationKey, operation),
			),
		)

		db.InstanceSet(spanKey, span)
		db.InstanceSet(startTimeKey, time.Now())
	}
}

func (p *tracingPlugin) after(db *gorm.DB) {
	spanRaw, exists := db.InstanceGet(spanKey)
	if !exists {
		return
	}
	span, ok := spanRaw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if startRaw, ok := db.InstanceGet(startTimeKey); ok {
		if start, ok := startRaw.(time.Time); ok {
			span.SetAttributes(attribute.Int64("db.duration_ms", time.Since(start).Milliseconds()))
		}
	}

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > 500 {
			sql = sql[:500] + "... (truncated)"
		}
		span.SetAttributes(attribute.String(dbStatementKey, sql))
	}

	if db.RowsAffected > 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}

	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
