package syncobj

// Notification is an outbound message produced by the engine.
type Notification interface {
	Conference() ConferenceID
	// RecipientIDs lists the participants the notification is addressed to.
	RecipientIDs() []ParticipantID
}

// ObjectUpdated carries a new object value. HasPrevious is false on the
// first delivery to a participant.
type ObjectUpdated struct {
	ConferenceID  ConferenceID
	ObjectID      ObjectID
	Value         Value
	PreviousValue Value
	HasPrevious   bool
	Recipients    []ParticipantID
}

func (n ObjectUpdated) Conference() ConferenceID      { return n.ConferenceID }
func (n ObjectUpdated) RecipientIDs() []ParticipantID { return n.Recipients }

// SubscriptionsRemoved tells one participant to drop local copies.
type SubscriptionsRemoved struct {
	ConferenceID  ConferenceID
	ParticipantID ParticipantID
	Removed       []ObjectID
}

func (n SubscriptionsRemoved) Conference() ConferenceID { return n.ConferenceID }
func (n SubscriptionsRemoved) RecipientIDs() []ParticipantID {
	return []ParticipantID{n.ParticipantID}
}

// Notifier hands notifications to the transport. Notify must not block on
// network I/O and must not fail the caller when a recipient is gone.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
