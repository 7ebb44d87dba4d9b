package bus

import "time"

// Event kinds published by pingme components. Subscribers filter by prefix,
// so "doc." receives every document change and "auth." every session event.
const (
	KindAuthStateChanged = "auth.state_changed"
	KindRosterUpdated    = "roster.updated"
	KindThreadUpdated    = "conversation.updated"
	KindMessageSent      = "message.sent"
	KindDocChangedPrefix = "doc."
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// DocChanged returns the event kind for a change to document id in collection.
func DocChanged(collection, id string) string {
	return KindDocChangedPrefix + collection + "/" + id
}

// DocNamespace returns the prefix matching every change in collection.
func DocNamespace(collection string) string {
	return KindDocChangedPrefix + collection + "/"
}
