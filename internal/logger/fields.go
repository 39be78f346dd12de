package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldQuery is the structured log field key for a (truncated) user query.
	FieldQuery = "query"
	// FieldSeq is the structured log field key for a submission sequence number.
	FieldSeq = "seq"
	// FieldSession is the structured log field key for a web session id.
	FieldSession = "session"

	// MaxQueryLogLength bounds how much of a query ends up in the logs.
	MaxQueryLogLength = 80
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger is replaced with a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// QueryFields describes a submission: its sequence number and the query cut
// down to MaxQueryLogLength runes.
func QueryFields(seq uint64, query string) []zap.Field {
	fields := []zap.Field{zap.Uint64(FieldSeq, seq)}
	return append(fields, StringFields(StringField{Key: FieldQuery, Value: TruncateForLog(query, MaxQueryLogLength)})...)
}
