package context

import "context"

type singleConnKey struct{}

// WithSingleConn marks the context as bound to one database connection.
// Queries issued through such a context must not overlap.
func WithSingleConn(ctx context.Context) context.Context {
	return context.WithValue(ctx, singleConnKey{}, true)
}

// IsSingleConn reports whether the context is bound to a single database
// connection.
func IsSingleConn(ctx context.Context) bool {
	v, _ := ctx.Value(singleConnKey{}).(bool)
	return v
}
