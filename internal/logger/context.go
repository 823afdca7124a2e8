package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are added to every record logged with a context carrying them.
type LogFields struct {
	MemberID    string
	Command     string // e.g. "register", "card", "http.get_member"
	RequesterID string // Discord user id or "admin-api"
	Component   string
}

// WithLogFields merges fields into ctx; non-empty values in fields win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := GetLogFields(ctx)
	if fields.MemberID != "" {
		merged.MemberID = fields.MemberID
	}
	if fields.Command != "" {
		merged.Command = fields.Command
	}
	if fields.RequesterID != "" {
		merged.RequesterID = fields.RequesterID
	}
	if fields.Component != "" {
		merged.Component = fields.Component
	}
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields stored in ctx, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}
