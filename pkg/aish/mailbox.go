package aish

import "sync"

// mailbox is a bounded FIFO queue. Pushing past capacity evicts the oldest
// entry and bumps overflowed, rather than rejecting the new message.
type mailbox struct {
	mu        sync.Mutex
	capacity  int
	messages  []Message
	overflowed int64
}

func newMailbox(capacity int) *mailbox {
	return &mailbox{capacity: capacity}
}

// push appends a message, evicting the oldest if the mailbox is full.
// It reports whether an eviction occurred.
func (m *mailbox) push(msg Message) (evicted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msg)
	if len(m.messages) > m.capacity {
		m.messages = m.messages[1:]
		m.overflowed++
		evicted = true
	}
	return evicted
}

// pop removes and returns the oldest message, if any.
func (m *mailbox) pop() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.messages) == 0 {
		return Message{}, false
	}
	msg := m.messages[0]
	m.messages = m.messages[1:]
	return msg, true
}

// read returns a copy of every message without removing them.
func (m *mailbox) read() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// readAndRemove returns and clears every message.
func (m *mailbox) readAndRemove() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.messages
	m.messages = nil
	return out
}

func (m *mailbox) overflowCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overflowed
}

// TerminalSession holds one interactive shell's three ephemeral, in-process
// mailboxes. It vanishes (along with its messages) when the terminal
// process exits — nothing here is persisted.
type TerminalSession struct {
	TerminalID string
	Name       string
	Purposes   []string

	prompt *mailbox
	new    *mailbox
	keep   *mailbox
}

// NewTerminalSession builds a session with empty, correctly-bounded
// mailboxes.
func NewTerminalSession(terminalID, name string, purposes []string) *TerminalSession {
	return &TerminalSession{
		TerminalID: terminalID,
		Name:       name,
		Purposes:   purposes,
		prompt:     newMailbox(mailboxCapacity[MailboxPrompt]),
		new:        newMailbox(mailboxCapacity[MailboxNew]),
		keep:       newMailbox(mailboxCapacity[MailboxKeep]),
	}
}

func (t *TerminalSession) mailboxFor(kind MailboxKind) *mailbox {
	switch kind {
	case MailboxPrompt:
		return t.prompt
	case MailboxKeep:
		return t.keep
	default:
		return t.new
	}
}

// Deliver places msg in the named mailbox, reporting whether delivery
// evicted an older message (a mailbox-full-evicted warning, not an error).
func (t *TerminalSession) Deliver(kind MailboxKind, msg Message) (evicted bool) {
	return t.mailboxFor(kind).push(msg)
}

// Pop removes and returns the oldest message in kind.
func (t *TerminalSession) Pop(kind MailboxKind) (Message, bool) {
	return t.mailboxFor(kind).pop()
}

// Push appends a message directly to kind (used by `inbox push`, which
// always targets keep).
func (t *TerminalSession) Push(kind MailboxKind, msg Message) (evicted bool) {
	return t.mailboxFor(kind).push(msg)
}

// Read returns kind's messages without removing them, unless remove is
// true, in which case it also clears the mailbox.
func (t *TerminalSession) Read(kind MailboxKind, remove bool) []Message {
	if remove {
		return t.mailboxFor(kind).readAndRemove()
	}
	return t.mailboxFor(kind).read()
}

// OverflowCount reports how many messages kind has evicted over its
// lifetime.
func (t *TerminalSession) OverflowCount(kind MailboxKind) int64 {
	return t.mailboxFor(kind).overflowCount()
}
