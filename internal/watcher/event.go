package watcher

// Token is the opaque handle the notification backend issues when a
// directory is registered. It maps to exactly one directory in the Registry.
type Token int

// EventKind represents the type of file system event
type EventKind int

const (
	// EventCreated is emitted when an entry appears in a watched directory,
	// either freshly created or moved in from elsewhere.
	EventCreated EventKind = iota
	// EventModified is emitted when an entry in a watched directory is written to.
	EventModified
	// EventOverflow signals that the backend dropped events. It carries no name.
	EventOverflow
)

// String returns the string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Event represents a single file system event inside a watched directory.
type Event struct {
	// Kind is the kind of event (created, modified, overflow)
	Kind EventKind

	// Name is the entry name relative to the watched directory.
	// Empty for overflow events.
	Name string
}

// Batch is every event the backend had pending for one token at one wake-up,
// in delivery order.
type Batch struct {
	Token  Token
	Events []Event
}

// Empty reports whether the batch carries no events.
func (b Batch) Empty() bool {
	return len(b.Events) == 0
}

// overflowBatch builds a one-event overflow batch for a token.
func overflowBatch(token Token) Batch {
	return Batch{Token: token, Events: []Event{{Kind: EventOverflow}}}
}
