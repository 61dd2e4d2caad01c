package conversation

import (
	"sync"

	"github.com/sells-group/violation-assistant/internal/model"
)

// Event is an external trigger of the report flow.
type Event int

const (
	EventStart Event = iota
	EventHelp
	EventNewReport
	EventInput
	EventTurnDone
)

// Next returns the state after ev and whether ev is handled in state s.
// Input is only handled while awaiting; everything else is always handled.
func Next(s model.ConversationState, ev Event) (model.ConversationState, bool) {
	switch ev {
	case EventStart, EventNewReport:
		return model.StateAwaitingInput, true
	case EventHelp:
		return s, true
	case EventInput:
		if s != model.StateAwaitingInput {
			return s, false
		}
		return model.StateAwaitingInput, true
	case EventTurnDone:
		return model.StateIdle, true
	}
	return s, false
}

// SessionStore keeps the per-chat state in memory. Chats with no entry are
// idle.
type SessionStore struct {
	mu     sync.Mutex
	states map[int64]model.ConversationState
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{states: make(map[int64]model.ConversationState)}
}

// Get returns the chat's current state.
func (s *SessionStore) Get(chatID int64) model.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[chatID]; ok {
		return st
	}
	return model.StateIdle
}

// Apply moves the chat through ev and reports whether ev was handled.
func (s *SessionStore) Apply(chatID int64, ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.states[chatID]
	if !ok {
		cur = model.StateIdle
	}
	next, handled := Next(cur, ev)
	if next == model.StateIdle {
		delete(s.states, chatID)
	} else {
		s.states[chatID] = next
	}
	return handled
}

// Claim atomically accepts one input for the chat: it succeeds only while
// awaiting input and leaves the chat idle, so a second concurrent input is
// ignored.
func (s *SessionStore) Claim(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.states[chatID]
	if !ok {
		cur = model.StateIdle
	}
	if _, handled := Next(cur, EventInput); !handled {
		return false
	}
	delete(s.states, chatID)
	return true
}

// Len returns the number of non-idle chats.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
