package relayhook

// Option configures an Extension.
type Option func(*Extension)

// PayloadFunc builds a custom event payload for a specific event type.
// The args parameter is the default payload and the returned value
// becomes event.Event.Data.
type PayloadFunc func(args any) (any, error)

// WithEvents restricts the extension to emit only the listed event types.
// By default every event type is enabled. Unknown types are silently
// ignored.
func WithEvents(events ...string) Option {
	return func(h *Extension) {
		h.enabled = make(map[string]bool, len(events))
		for _, e := range events {
			h.enabled[e] = true
		}
	}
}

// WithPayloadFunc registers a custom payload builder for the given event
// type. The function replaces the default JSON payload for that event.
func WithPayloadFunc(eventType string, fn PayloadFunc) Option {
	return func(h *Extension) {
		if h.payloads == nil {
			h.payloads = make(map[string]PayloadFunc)
		}
		h.payloads[eventType] = fn
	}
}

// WithTenant sets the Relay tenant every event is delivered under.
func WithTenant(tenantID string) Option {
	return func(h *Extension) { h.tenant = tenantID }
}
