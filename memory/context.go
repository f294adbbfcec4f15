package memory

import "context"

type conversationIDKey struct{}

// WithConversationID returns a child context carrying the conversation id.
func WithConversationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, conversationIDKey{}, id)
}

// ConversationIDFromContext returns the conversation id from ctx, if present.
func ConversationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(conversationIDKey{}).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
