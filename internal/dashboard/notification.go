package dashboard

import "fmt"

// Kind indicates the severity of a notification.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarn
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindSuccess:
		return "success"
	case KindWarn:
		return "warn"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a transient, non-blocking message for the user.
type Notification struct {
	Kind Kind
	Text string
}

// Notifier receives the notifications a search produces.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

const (
	MsgEmptyTopic    = "Please enter a topic to search"
	MsgRequestFailed = "An error occurred, please try again."
	MsgBadFormat     = "Unexpected API response format."
	MsgHistoryFailed = "Search history could not be updated"
)

// MsgNoResults names the topic that produced an empty result.
func MsgNoResults(topic string) string {
	return fmt.Sprintf("No news found for \"%s\"", topic)
}
