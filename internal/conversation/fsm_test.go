package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/violation-assistant/internal/model"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		from    model.ConversationState
		ev      Event
		to      model.ConversationState
		handled bool
	}{
		{"start from idle", model.StateIdle, EventStart, model.StateAwaitingInput, true},
		{"start while awaiting", model.StateAwaitingInput, EventStart, model.StateAwaitingInput, true},
		{"report button", model.StateIdle, EventNewReport, model.StateAwaitingInput, true},
		{"help keeps idle", model.StateIdle, EventHelp, model.StateIdle, true},
		{"help keeps awaiting", model.StateAwaitingInput, EventHelp, model.StateAwaitingInput, true},
		{"input ignored when idle", model.StateIdle, EventInput, model.StateIdle, false},
		{"input accepted when awaiting", model.StateAwaitingInput, EventInput, model.StateAwaitingInput, true},
		{"turn done", model.StateAwaitingInput, EventTurnDone, model.StateIdle, true},
		{"unknown event", model.StateIdle, Event(99), model.StateIdle, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, handled := Next(tt.from, tt.ev)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.handled, handled)
		})
	}
}

func TestSessionStore(t *testing.T) {
	s := NewSessionStore()
	assert.Equal(t, model.StateIdle, s.Get(1))
	assert.False(t, s.Claim(1))

	assert.True(t, s.Apply(1, EventStart))
	assert.Equal(t, model.StateAwaitingInput, s.Get(1))
	assert.Equal(t, model.StateIdle, s.Get(2))
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Claim(1))
	assert.Equal(t, model.StateIdle, s.Get(1))
	assert.False(t, s.Claim(1))
	assert.Equal(t, 0, s.Len())

	s.Apply(1, EventNewReport)
	s.Apply(1, EventTurnDone)
	assert.Equal(t, model.StateIdle, s.Get(1))
}

func TestSessionStore_ConcurrentClaim(t *testing.T) {
	s := NewSessionStore()
	s.Apply(7, EventNewReport)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		claims int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Claim(7) {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claims)
}
