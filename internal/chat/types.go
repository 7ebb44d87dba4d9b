// Package chat holds the document shapes shared by every pingme component:
// user profiles, messages, delivery status and the conversation key.
package chat

import (
	"sort"
	"strings"
	"time"

	"github.com/matheus3301/pingme/internal/docstore"
)

// Collections and document fields as stored.
const (
	UsersCollection    = "users"
	MessagesCollection = "messages"
	ChatsSubcollection = "chats"

	FieldUID         = "uid"
	FieldDisplayName = "displayName"
	FieldEmail       = "email"
	FieldPhotoURL    = "photoURL"
	FieldPresence    = "status"
	FieldLastSeen    = "lastSeen"

	FieldText       = "text"
	FieldSenderID   = "senderId"
	FieldReceiverID = "receiverId"
	FieldTimestamp  = "timestamp"
	FieldStatus     = "status"
)

// Presence is a user's self-reported availability.
type Presence string

const (
	Online  Presence = "online"
	Offline Presence = "offline"
)

// UserProfile is the document at users/{uid}.
type UserProfile struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photoURL"`
	Presence    Presence  `json:"status"`
	LastSeen    time.Time `json:"lastSeen,omitzero"`
}

// Name returns the display name, falling back to email then uid.
func (u UserProfile) Name() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	default:
		return u.UID
	}
}

// Message is one document of messages/{key}/chats. Timestamp is zero until
// the store has assigned it.
type Message struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	Status     Status    `json:"status"`
}

// Inbound reports whether m was addressed to self.
func (m Message) Inbound(self string) bool {
	return m.ReceiverID == self
}

// ConversationKey returns the order-independent key of the conversation
// between a and b: the two ids sorted and joined with "_".
func ConversationKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// MessagesPath returns the collection path holding the messages between a and b.
func MessagesPath(a, b string) string {
	return docstore.CollectionPath(MessagesCollection, ConversationKey(a, b), ChatsSubcollection)
}

// UserRef returns the reference of uid's profile document.
func UserRef(uid string) docstore.Ref {
	return docstore.Doc(UsersCollection, uid)
}

// ProfileFromDoc decodes a users document. The uid falls back to the
// document id when the field is absent.
func ProfileFromDoc(d docstore.Document) UserProfile {
	p := UserProfile{
		UID:         d.String(FieldUID),
		DisplayName: d.String(FieldDisplayName),
		Email:       d.String(FieldEmail),
		PhotoURL:    d.String(FieldPhotoURL),
		Presence:    Presence(d.String(FieldPresence)),
		LastSeen:    d.Time(FieldLastSeen),
	}
	if p.UID == "" {
		p.UID = d.Ref.ID
	}
	if p.Presence == "" {
		p.Presence = Offline
	}
	return p
}

// MessageFromDoc decodes a chats document.
func MessageFromDoc(d docstore.Document) Message {
	return Message{
		ID:         d.Ref.ID,
		Text:       d.String(FieldText),
		SenderID:   d.String(FieldSenderID),
		ReceiverID: d.String(FieldReceiverID),
		Timestamp:  d.Time(FieldTimestamp),
		Status:     Status(d.String(FieldStatus)),
	}
}

// MessagesFromDocs decodes a snapshot's documents in order.
func MessagesFromDocs(docs []docstore.Document) []Message {
	out := make([]Message, len(docs))
	for i, d := range docs {
		out[i] = MessageFromDoc(d)
	}
	return out
}

// NewMessageFields returns the fields of a freshly sent message.
func NewMessageFields(from, to, text string) map[string]any {
	return map[string]any{
		FieldText:       text,
		FieldSenderID:   from,
		FieldReceiverID: to,
		FieldTimestamp:  docstore.ServerTimestamp,
		FieldStatus:     string(StatusSent),
	}
}

// UnreadQuery selects the messages from peer to self that have not been seen.
func UnreadQuery(self, peer string) docstore.Query {
	return docstore.Collection(MessagesPath(self, peer)).
		Where(FieldReceiverID, docstore.Equal, self).
		Where(FieldStatus, docstore.In, UnreadStatuses)
}
