package controller

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thatsimonsguy/irrigation-controller/internal/fsm"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

const eventHistory = 32

// Snapshot is the published view of the controller. Readers never see State.
type Snapshot struct {
	BootID      string         `json:"boot_id"`
	Mode        model.Mode     `json:"mode"`
	SSID        string         `json:"ssid,omitempty"`
	RadioStatus string         `json:"radio_status"`
	Schedule    model.Schedule `json:"schedule"`
	HTTPError   bool           `json:"http_error"`
	LastPoll    *time.Time     `json:"last_poll,omitempty"`
	Faulted     bool           `json:"faulted"`
	Fault       string         `json:"fault,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type EventRecord struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// Board holds the latest snapshot and a ring of recently applied events.
type Board struct {
	mu     sync.RWMutex
	snap   Snapshot
	events []EventRecord
	next   int
}

func NewBoard(bootID string) *Board {
	return &Board{
		snap: Snapshot{
			BootID:      bootID,
			Mode:        model.ModeInitializing,
			RadioStatus: model.RadioIdle.String(),
		},
		events: make([]EventRecord, 0, eventHistory),
	}
}

// Publish replaces the snapshot with st. A recorded fault survives.
func (b *Board) Publish(st fsm.State, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snap.Mode = st.Mode
	b.snap.SSID = st.Credentials.SSID
	b.snap.RadioStatus = st.RadioStatus.String()
	b.snap.Schedule = st.Schedule
	b.snap.HTTPError = st.HTTPError
	b.snap.LastPoll = nil
	if !st.LastPollTime.IsZero() {
		t := st.LastPollTime
		b.snap.LastPoll = &t
	}
	b.snap.UpdatedAt = now
}

func (b *Board) Record(ev fsm.Event, at time.Time) {
	rec := EventRecord{ID: uuid.NewString(), Name: ev.Name(), At: at}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) < eventHistory {
		b.events = append(b.events, rec)
		return
	}
	b.events[b.next] = rec
	b.next = (b.next + 1) % eventHistory
}

func (b *Board) SetFault(err error, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snap.Faulted = true
	b.snap.Fault = err.Error()
	b.snap.UpdatedAt = now
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

// Events returns the recorded events, oldest first.
func (b *Board) Events() []EventRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]EventRecord, 0, len(b.events))
	out = append(out, b.events[b.next:]...)
	out = append(out, b.events[:b.next]...)
	return out
}
