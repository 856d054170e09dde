// Package notifier defines the outbound alert contract and its registry.
package notifier

// Message is a rendered alert ready for delivery. Short is an optional
// one-line summary used by channels that support it.
type Message struct {
	Title   string
	Content string
	Short   string
}

// Notifier defines the interface for alert delivery channels
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single message
	Send(msg Message) error
}
