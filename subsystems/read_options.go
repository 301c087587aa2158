package subsystems

import "context"

type freshReadKey struct{}

// WithFreshReads returns a context that asks a RemoteStore to bypass any response cache of its own
// and read from the origin. The bundle exporter uses this, since an export must reflect what is
// stored right now.
func WithFreshReads(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshReadKey{}, true)
}

// IsFreshRead returns true if the context was created by WithFreshReads.
func IsFreshRead(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshReadKey{}).(bool)
	return fresh
}
