package captions

// Palette holds one display colour per speaker slot.
var Palette = []string{
	"#00ff00",
	"#00bfff",
	"#ffff00",
	"#ff69b4",
	"#ffa500",
	"#da70d6",
}

// SpeakerAssigner maps a segment index to a speaker slot.
type SpeakerAssigner interface {
	Speaker(segmentIndex int) int
}

// RoundRobin assigns slot floor(i/GroupSize) mod Slots. It is a stand-in
// for real diarization.
type RoundRobin struct {
	GroupSize int
	Slots     int
}

// DefaultSpeakers groups segments in pairs over the six palette slots.
var DefaultSpeakers = RoundRobin{GroupSize: 2, Slots: len(Palette)}

// Speaker implements SpeakerAssigner.
func (r RoundRobin) Speaker(segmentIndex int) int {
	group, slots := r.GroupSize, r.Slots
	if group <= 0 {
		group = 2
	}
	if slots <= 0 {
		slots = len(Palette)
	}
	if segmentIndex < 0 {
		return 0
	}
	return (segmentIndex / group) % slots
}

// Color returns the palette colour for slot, wrapping out-of-range slots.
func Color(slot int) string {
	if slot < 0 {
		slot = -slot
	}
	return Palette[slot%len(Palette)]
}
