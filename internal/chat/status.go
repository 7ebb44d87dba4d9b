package chat

// Status is a message's delivery status. It only ever moves forward:
// sent, delivered, seen.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
)

var statusRank = map[Status]int{
	StatusSent:      1,
	StatusDelivered: 2,
	StatusSeen:      3,
}

// UnreadStatuses are the statuses that count a message as unread. The roster
// badge, the selector and the sweep all use this set.
var UnreadStatuses = []string{string(StatusSent), string(StatusDelivered)}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Unread reports whether a message in status s has not been seen. Unknown
// statuses are treated as unread.
func (s Status) Unread() bool {
	return s != StatusSeen
}

// CanAdvanceTo reports whether moving from s to next is a forward step.
// An unknown current status may advance to any valid status.
func (s Status) CanAdvanceTo(next Status) bool {
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return statusRank[s] < to
}

// Receipt returns the check marks drawn next to an outbound message.
func (s Status) Receipt() string {
	switch s {
	case StatusDelivered, StatusSeen:
		return "✓✓"
	default:
		return "✓"
	}
}
