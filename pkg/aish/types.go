// Package aish implements the CI Registry & Message Shell: resolving a
// logical CI name to a transport endpoint, per-CI forwarding rules, and
// per-terminal ephemeral mailboxes for inter-session messaging.
package aish

import "time"

// Kind distinguishes the three categories of CI entry.
type Kind string

const (
	KindGreekChorus Kind = "greek-chorus"
	KindTerminal    Kind = "terminal"
	KindProject     Kind = "project"
)

// ForwardRule redirects messages addressed to a CI to a terminal instead.
type ForwardRule struct {
	DestCI    string    `json:"dest_ci"`
	Terminal  string    `json:"terminal_id"`
	JSON      bool      `json:"json"`
	CreatedAt time.Time `json:"created_at"`
}

// CIEntry is one entry in the CI registry.
type CIEntry struct {
	CIName          string       `json:"ci_name"`
	Kind            Kind         `json:"kind"`
	Endpoint        string       `json:"endpoint"`
	ForwardTo       *ForwardRule `json:"forward_to,omitempty"`
	Persona         string       `json:"persona,omitempty"`
	ModelPreference string       `json:"model_preference,omitempty"`
	SunsetState     string       `json:"sunset_state,omitempty"`
	NextPrompt      string       `json:"next_prompt,omitempty"`
	SunriseContext  string       `json:"sunrise_context,omitempty"`
}

// MailboxKind names one of a terminal's three FIFO inboxes.
type MailboxKind string

const (
	MailboxPrompt MailboxKind = "prompt"
	MailboxNew    MailboxKind = "new"
	MailboxKeep   MailboxKind = "keep"
)

// mailboxCapacity bounds each mailbox kind per §3 of the terminal session
// data model: prompt ≤50, new ≤100, keep ≤50.
var mailboxCapacity = map[MailboxKind]int{
	MailboxPrompt: 50,
	MailboxNew:    100,
	MailboxKeep:   50,
}

// Message is one entry in a terminal mailbox.
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	Routing   string    `json:"routing,omitempty"`
	Body      string    `json:"body"`
}

// EnvelopeBody is the JSON wrapper applied to a forwarded message when its
// ForwardRule was created with json=true.
type EnvelopeBody struct {
	Message string `json:"message"`
	Dest    string `json:"dest"`
	Sender  string `json:"sender"`
	Purpose string `json:"purpose,omitempty"`
}
