package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

type flowState int

const (
	awaitingIdentity flowState = iota
	awaitingCommunity
)

// flow is one user's pending onboarding: the message that started it and,
// once the identity is chosen, the communities offered.
type flow struct {
	id         string
	user       domain.UserRef
	first      InboundMessage
	state      flowState
	mode       domain.IdentityMode
	candidates []Community
	timer      *time.Timer
	gen        uint64 // bumped on every insert; identifies the armed timer
}

// flowTable holds pending onboarding flows. A user has at most one; a new
// one replaces the old. Each waiting step expires after timeout, and a flow
// is removed from the table as soon as a step is claimed so a choice cannot
// be applied twice.
type flowTable struct {
	mu      sync.Mutex
	timeout time.Duration
	byID    map[string]*flow
	byUser  map[string]string
	onEnd   func(outcome string)
	gen     uint64
}

func newFlowTable(timeout time.Duration, onEnd func(string)) *flowTable {
	if onEnd == nil {
		onEnd = func(string) {}
	}
	return &flowTable{
		timeout: timeout,
		byID:    make(map[string]*flow),
		byUser:  make(map[string]string),
		onEnd:   onEnd,
	}
}

// begin registers a new flow for the message author, replacing any pending one.
func (t *flowTable) begin(msg InboundMessage) *flow {
	f := &flow{id: uuid.NewString(), user: msg.Author, first: msg, state: awaitingIdentity}

	t.mu.Lock()
	replaced := false
	if old, ok := t.byUser[f.user.ID]; ok {
		t.removeLocked(old)
		replaced = true
	}
	t.insertLocked(f)
	t.mu.Unlock()

	if replaced {
		t.onEnd("replaced")
	}
	return f
}

// claim takes the flow out of the table if it belongs to userID and waits
// for the given step.
func (t *flowTable) claim(id, userID string, want flowState) (*flow, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.byID[id]
	if !ok || f.user.ID != userID || f.state != want {
		return nil, ErrFlowExpired
	}
	t.removeLocked(id)
	return f, nil
}

// park puts a claimed flow back to wait for its next step with a fresh
// timeout. A flow started in the meantime for the same user wins.
func (t *flowTable) park(f *flow, next flowState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.byUser[f.user.ID]; busy {
		return false
	}
	f.state = next
	t.insertLocked(f)
	return true
}

// drop removes a flow without recording an outcome.
func (t *flowTable) drop(id string) {
	t.mu.Lock()
	t.removeLocked(id)
	t.mu.Unlock()
}

// len returns the number of pending flows.
func (t *flowTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// expire ends the flow if it is still waiting on the step the timer was
// armed for. A timer that fired while its flow was being claimed and parked
// again finds a newer generation and does nothing.
func (t *flowTable) expire(id string, gen uint64) {
	t.mu.Lock()
	f, ok := t.byID[id]
	ok = ok && f.gen == gen
	if ok {
		t.removeLocked(id)
	}
	t.mu.Unlock()
	if ok {
		t.onEnd("expired")
	}
}

func (t *flowTable) insertLocked(f *flow) {
	id := f.id
	t.gen++
	gen := t.gen
	f.gen = gen
	f.timer = time.AfterFunc(t.timeout, func() { t.expire(id, gen) })
	t.byID[id] = f
	t.byUser[f.user.ID] = id
	pendingOnboarding.Set(float64(len(t.byID)))
}

func (t *flowTable) removeLocked(id string) {
	f, ok := t.byID[id]
	if !ok {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	delete(t.byID, id)
	if t.byUser[f.user.ID] == id {
		delete(t.byUser, f.user.ID)
	}
	pendingOnboarding.Set(float64(len(t.byID)))
}
