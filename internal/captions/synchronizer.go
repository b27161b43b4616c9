package captions

import (
	"sync"

	"captionsync/internal/transcript"
)

// Event is a caption that should now be on screen.
type Event struct {
	Index   int    `json:"index"`
	Speaker int    `json:"speaker"`
	Text    string `json:"text"`
	Color   string `json:"color"`
}

// Listener receives caption transitions. Calls are made while the
// synchronizer holds its lock, so listeners must not call back into it.
type Listener interface {
	Show(Event)
	Hide()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnShow func(Event)
	OnHide func()
}

// Show implements Listener.
func (f ListenerFuncs) Show(e Event) {
	if f.OnShow != nil {
		f.OnShow(e)
	}
}

// Hide implements Listener.
func (f ListenerFuncs) Hide() {
	if f.OnHide != nil {
		f.OnHide()
	}
}

// State is the playback position and the active segment (-1 when none).
type State struct {
	CurrentTime float64 `json:"currentTime"`
	Active      int     `json:"active"`
}

// Synchronizer tracks which segment is active for the current playback time.
type Synchronizer struct {
	mu       sync.Mutex
	segments []transcript.Segment
	speakers SpeakerAssigner
	listener Listener
	state    State
}

// NewSynchronizer returns a synchronizer for t. A nil assigner uses
// DefaultSpeakers.
func NewSynchronizer(t transcript.Transcript, listener Listener, speakers SpeakerAssigner) *Synchronizer {
	if speakers == nil {
		speakers = DefaultSpeakers
	}
	if listener == nil {
		listener = ListenerFuncs{}
	}
	return &Synchronizer{
		segments: t.Segments,
		speakers: speakers,
		listener: listener,
		state:    State{Active: -1},
	}
}

// OnTimeUpdate moves the playback clock to t and emits a transition when the
// active segment changes. The first segment with start <= t <= end wins.
func (s *Synchronizer) OnTimeUpdate(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CurrentTime = t
	next := -1
	for i, seg := range s.segments {
		if seg.Contains(t) {
			next = i
			break
		}
	}

	switch {
	case next == s.state.Active:
		return
	case next >= 0:
		s.state.Active = next
		s.listener.Show(s.eventFor(next))
	default:
		s.state.Active = -1
		s.listener.Hide()
	}
}

// Load swaps in a new transcript, hiding any active caption first.
func (s *Synchronizer) Load(t transcript.Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hideLocked()
	s.segments = t.Segments
	s.state = State{Active: -1}
}

// Stop hides the active caption; call it when playback ends.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hideLocked()
}

// State returns the current playback state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Synchronizer) hideLocked() {
	if s.state.Active >= 0 {
		s.state.Active = -1
		s.listener.Hide()
	}
}

func (s *Synchronizer) eventFor(index int) Event {
	slot := s.speakers.Speaker(index)
	return Event{
		Index:   index,
		Speaker: slot,
		Text:    transcript.CleanText(s.segments[index].Text),
		Color:   Color(slot),
	}
}
