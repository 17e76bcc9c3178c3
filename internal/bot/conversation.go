package bot

import (
	"sync"

	"github.com/unipulse/unipulse-bot/internal/app/models"
)

type stateKind int

const (
	stateNone stateKind = iota
	stateAwaitingEmail
	stateEditAwaitValue
)

// convState is what the bot remembers between messages of a multi-step
// flow. Edit flows carry the event and field chosen via callback buttons.
type convState struct {
	kind    stateKind
	eventID int64
	field   models.EventField
}

type convKey struct {
	chatID int64
	userID int64
}

// conversations is an in-memory store of per-user flow state. State is
// process-local; a restart drops in-flight flows, which start over cleanly.
type conversations struct {
	mu     sync.Mutex
	states map[convKey]convState
}

func newConversations() *conversations {
	return &conversations{states: make(map[convKey]convState)}
}

func (c *conversations) get(chatID, userID int64) convState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[convKey{chatID: chatID, userID: userID}]
}

func (c *conversations) set(chatID, userID int64, state convState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[convKey{chatID: chatID, userID: userID}] = state
}

func (c *conversations) clear(chatID, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, convKey{chatID: chatID, userID: userID})
}
