package broadcaster

// Noop discards every published message. Used by tests and by any run configured with
// broadcasting disabled, so callers never need a nil check before publishing. spec.md §9
// Design Note on one-way dependency.
type Noop struct{}

func (Noop) Publish(string, any) {}
