// Package chat implements the chat domain: the shared message log, the
// nickname registry, the directory capability that authenticates users, and
// the per-user session capabilities the directory mints.
package chat

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Message is one chat log entry. Entries are append-only and never mutated.
type Message struct {
	From      string
	Body      string
	Timestamp uint64
}

// Soft domain failures. Their text is caller-visible: session methods return
// it inside {"status": "error", "message": ...} results.
var (
	ErrNickTaken       = errors.New("Nickname already registered")
	ErrNickUnknown     = errors.New("Nickname not registered")
	ErrNickBadPassword = errors.New("Invalid password")
)

// State is the shared chat aggregate: message log, nickname registry, and
// active session bookkeeping, all guarded by one mutex.
type State struct {
	log *slog.Logger

	mu         sync.Mutex
	messages   []Message
	nicks      map[string]string // nickname -> password
	nickOwners map[string]string // nickname -> owning username
	sessions   map[uint64]string // session capability id -> username
	now        func() time.Time
	notify     func(Message)
}

// NewState creates an empty chat state.
func NewState(log *slog.Logger) *State {
	return &State{
		log:        log.With("component", "chat"),
		nicks:      make(map[string]string, 8),
		nickOwners: make(map[string]string, 8),
		sessions:   make(map[uint64]string, 8),
		now:        time.Now,
	}
}

// SetClock overrides the timestamp source for recorded messages.
func (s *State) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now = now
}

// SetNotify installs a hook invoked after every recorded message, outside the
// state lock. Duplex deployments point it at the broadcast hub.
func (s *State) SetNotify(fn func(Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notify = fn
}

// Record appends a message to the log and returns it.
func (s *State) Record(from, body string) Message {
	s.mu.Lock()

	msg := Message{
		From:      from,
		Body:      body,
		Timestamp: uint64(s.now().Unix()),
	}
	s.messages = append(s.messages, msg)
	notify := s.notify

	s.mu.Unlock()

	s.log.Debug("Recorded message", "from", from, "bytes", len(body))

	if notify != nil {
		notify(msg)
	}

	return msg
}

// Snapshot returns a copy of the entire log in insertion order.
//
// There is no cursor: the cost grows with the channel's total history.
func (s *State) Snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)

	return out
}

// TrackSession records which username a minted session capability belongs to.
func (s *State) TrackSession(id uint64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = username
}

// SessionUser returns the username bound to a session capability id.
func (s *State) SessionUser(id uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.sessions[id]

	return username, ok
}

// RegisterNick stores a nickname with its password and owning username.
//
// Returns ErrNickTaken when the nickname is already registered; ownership is
// exclusive and enforced here, at registration time.
func (s *State) RegisterNick(nick, password, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.nicks[nick]; taken {
		return ErrNickTaken
	}

	s.nicks[nick] = password
	s.nickOwners[nick] = owner

	s.log.Debug("Registered nickname", "nick", nick, "owner", owner)

	return nil
}

// IdentifyNick checks a nickname's password and returns its owning username.
//
// Ownership is not checked here: the caller compares the returned owner
// against the session's bound username.
func (s *State) IdentifyNick(nick, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.nicks[nick]
	if !ok {
		return "", ErrNickUnknown
	}

	if stored != password {
		return "", ErrNickBadPassword
	}

	return s.nickOwners[nick], nil
}

// NickRegistered reports whether a nickname exists, with no side effect.
func (s *State) NickRegistered(nick string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.nicks[nick]

	return ok
}
