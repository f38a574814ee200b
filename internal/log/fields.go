package log

import (
	"context"
	"log/slog"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldFamily     = "family"
	FieldRecordID   = "record_id"
	FieldRecordIDs  = "record_ids"
	FieldVersion    = "version"
	FieldKey        = "key"
	FieldBytes      = "bytes"
	FieldCount      = "count"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldMerchant   = "merchant"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldConfidence = "confidence"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentRepository = "repository"
	ComponentStorage    = "storage"
	ComponentNotify     = "notify"
	ComponentLedger     = "ledger"
	ComponentRecurring  = "recurring"
	ComponentCategorize = "categorize"
	ComponentCache      = "cache"
	ComponentBackend    = "backend"
	ComponentConfig     = "config"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpRestore  = "restore"
	OpFlush    = "flush"
	OpCascade  = "cascade"
	OpProcess  = "process"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypePersistence   = "persistence_error"
	ErrorTypeDecode        = "decode_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds error type field
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithFamily adds the collection family
func (f LogFields) WithFamily(family string) LogFields {
	f[FieldFamily] = family
	return f
}

// WithRecords adds the affected record ids and resulting collection version
func (f LogFields) WithRecords(ids []string, version uint64) LogFields {
	if len(ids) == 1 {
		f[FieldRecordID] = ids[0]
	} else {
		f[FieldRecordIDs] = ids
	}
	f[FieldVersion] = version
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		if k == FieldComponent {
			// Logger methods already attach the component.
			continue
		}
		slice = append(slice, k, v)
	}
	return slice
}

// StructuredLogger provides structured logging methods for repository events
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogMutation logs a committed repository mutation at debug level
func (sl *StructuredLogger) LogMutation(ctx context.Context, family, op string, ids []string, version uint64) {
	fields := NewFields().
		WithFamily(family).
		WithOperation(op).
		WithRecords(ids, version)

	sl.logger.DebugContext(ctx, "Collection mutated", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errorType string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithErrorType(errorType).
		WithOperation(operation)

	sl.logger.Logger.Log(ctx, slog.LevelError, msg, append([]any{FieldComponent, sl.logger.component}, allFields.ToSlice()...)...)
}
