package plugin

// HTTPProvider is implemented by components that expose REST API routes
// without taking part in the module lifecycle.
type HTTPProvider interface {
	Routes() []Route
}

// EventSubscriber is implemented by modules that declare event subscriptions at init.
type EventSubscriber interface {
	Subscriptions() []Subscription
}

// Validator is implemented by modules that validate their config post-init.
type Validator interface {
	ValidateConfig() error
}
