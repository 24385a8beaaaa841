// Package chat holds the transport-neutral wire types exchanged between the
// chat gateway and the conversation engine.
package chat

type EventKind string

const (
	EventText   EventKind = "text"
	EventButton EventKind = "button"
)

// Event is one inbound user interaction.
type Event struct {
	UserID      string    `json:"user_id"`
	Kind        EventKind `json:"kind"`
	Payload     string    `json:"payload"`
	Locale      string    `json:"locale,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
}

type Button struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

// Document is a file attached to a reply, e.g. a CSV export.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Reply is one outbound rendering: a message body plus an optional grid of
// actions. Each button payload comes back later as a button Event.
type Reply struct {
	Text     string     `json:"text"`
	Controls [][]Button `json:"controls,omitempty"`
	Document *Document  `json:"document,omitempty"`
}

// Row is a convenience for building a single control row.
func Row(buttons ...Button) []Button {
	return buttons
}

// ButtonFor renders an action as a labelled button.
func ButtonFor(label string, a Action) Button {
	return Button{Label: label, Payload: a.Payload()}
}
