package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext returns the request logger, or one built on the slog default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware injects logger into every request context, tagged with the
// request id returned by requestID.
func Middleware(logger *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if requestID != nil {
				if id := requestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// StructuredLogger writes the recurring domain log lines with consistent fields.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogExpenseAdded records a created expense.
func (sl *StructuredLogger) LogExpenseAdded(ctx context.Context, uid, id, expenseType, amount string) {
	fields := NewFields().
		WithUser(uid).
		WithExpense(id, expenseType, amount).
		WithOperation(OpCreate).
		WithComponent(ComponentFinance)
	sl.logger.Logger.InfoContext(ctx, "Expense added", fields.ToSlice()...)
}

// LogFriendRequest records a sent or accepted friend request.
func (sl *StructuredLogger) LogFriendRequest(ctx context.Context, op, requestID, from, to string) {
	fields := NewFields().
		WithUser(from).
		WithOperation(op).
		WithComponent(ComponentFriends)
	fields[FieldRequestRef] = requestID
	fields[FieldTargetID] = to
	sl.logger.Logger.InfoContext(ctx, "Friend request", fields.ToSlice()...)
}

// LogError logs a failed operation. Client errors go out at Warn, the rest at Error.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation, errorType string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.
		WithError(err).
		WithErrorType(errorType).
		WithOperation(operation).
		WithComponent(component)

	level := slog.LevelError
	if errorType != ErrorTypeInternal {
		level = slog.LevelWarn
	}
	sl.logger.Logger.Log(ctx, level, msg, all.ToSlice()...)
}
