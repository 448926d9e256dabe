package notify

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
	"github.com/haseebgb92/blooms-journey-sub000/internal/eventbus"
)

// Note is one step of a tone pattern: a pitch held for a duration.
// Freq 0 is a rest.
type Note struct {
	Freq float64
	Ms   int
}

// ToneCue is the bus payload for tone playback: the pattern plus a small
// pre-rendered WAV clip clients can play directly.
type ToneCue struct {
	Pattern string
	Notes   []Note
	WAV     []byte
}

// Per-category melodies. Purely cosmetic; pitch/rhythm distinguish the
// category without the user reading the screen.
var tonePatterns = map[domain.Category]struct {
	name  string
	notes []Note
}{
	domain.CategoryWaterIntake: {"droplet", []Note{
		{Freq: 880, Ms: 90}, {Freq: 0, Ms: 40}, {Freq: 1175, Ms: 90}, {Freq: 0, Ms: 40}, {Freq: 1568, Ms: 140},
	}},
	domain.CategoryMedication: {"pulse", []Note{
		{Freq: 659, Ms: 120}, {Freq: 0, Ms: 60}, {Freq: 659, Ms: 120}, {Freq: 0, Ms: 60}, {Freq: 784, Ms: 180},
	}},
	domain.CategoryExercise: {"march", []Note{
		{Freq: 523, Ms: 100}, {Freq: 659, Ms: 100}, {Freq: 784, Ms: 100}, {Freq: 1047, Ms: 160},
	}},
	domain.CategoryDoctorAppointment: {"chime", []Note{
		{Freq: 988, Ms: 200}, {Freq: 0, Ms: 80}, {Freq: 740, Ms: 260},
	}},
	domain.CategoryBabyMessage: {"lullaby", []Note{
		{Freq: 523, Ms: 150}, {Freq: 587, Ms: 150}, {Freq: 659, Ms: 150}, {Freq: 587, Ms: 150}, {Freq: 523, Ms: 220},
	}},
	domain.CategoryDevelopmentMorning: {"sunrise", []Note{
		{Freq: 392, Ms: 120}, {Freq: 523, Ms: 120}, {Freq: 659, Ms: 120}, {Freq: 784, Ms: 200},
	}},
	domain.CategoryDevelopmentNight: {"sunset", []Note{
		{Freq: 784, Ms: 120}, {Freq: 659, Ms: 120}, {Freq: 523, Ms: 120}, {Freq: 392, Ms: 200},
	}},
}

// PatternFor returns the melody for a category; unknown categories share
// the appointment chime.
func PatternFor(cat domain.Category) (string, []Note) {
	p, ok := tonePatterns[cat]
	if !ok {
		p = tonePatterns[domain.CategoryDoctorAppointment]
	}
	return p.name, p.notes
}

// ToneChannel publishes an audible cue on the event bus. It never fails
// the chain: rendering problems are logged and reported as nil.
type ToneChannel struct {
	bus eventbus.Bus
	log *zap.Logger
}

func NewToneChannel(bus eventbus.Bus, log *zap.Logger) *ToneChannel {
	return &ToneChannel{bus: bus, log: log}
}

func (t *ToneChannel) Name() string { return "tone" }

func (t *ToneChannel) Deliver(_ context.Context, n *domain.Notification) error {
	if !n.Sound {
		return nil
	}
	name, notes := PatternFor(n.Type)
	wav, err := RenderWAV(notes)
	if err != nil {
		// Cosmetic only; swallow.
		t.log.Debug("tone render failed", zap.Error(err))
		wav = nil
	}
	t.bus.Publish(eventbus.Event{
		Kind:   eventbus.KindTone,
		UserID: n.UserID,
		Tone:   ToneCue{Pattern: name, Notes: notes, WAV: wav},
	})
	return nil
}

const (
	sampleRate = 8000
	amplitude  = 0.3
)

// RenderWAV synthesizes a mono 16-bit PCM WAV clip for a note sequence.
// Sine synthesis with a short linear fade at note edges to avoid clicks.
func RenderWAV(notes []Note) ([]byte, error) {
	var pcm bytes.Buffer
	for _, note := range notes {
		n := sampleRate * note.Ms / 1000
		fade := sampleRate / 100 // 10ms
		if fade > n/2 {
			fade = n / 2
		}
		for i := 0; i < n; i++ {
			var v float64
			if note.Freq > 0 {
				v = amplitude * math.Sin(2*math.Pi*note.Freq*float64(i)/sampleRate)
				if i < fade {
					v *= float64(i) / float64(fade)
				} else if n-i < fade {
					v *= float64(n-i) / float64(fade)
				}
			}
			if err := binary.Write(&pcm, binary.LittleEndian, int16(v*math.MaxInt16)); err != nil {
				return nil, err
			}
		}
	}

	var out bytes.Buffer
	dataLen := uint32(pcm.Len())
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, 36+dataLen)
	out.WriteString("WAVEfmt ")
	_ = binary.Write(&out, binary.LittleEndian, uint32(16))        // fmt chunk size
	_ = binary.Write(&out, binary.LittleEndian, uint16(1))         // PCM
	_ = binary.Write(&out, binary.LittleEndian, uint16(1))         // mono
	_ = binary.Write(&out, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&out, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	_ = binary.Write(&out, binary.LittleEndian, uint16(2))            // block align
	_ = binary.Write(&out, binary.LittleEndian, uint16(16))           // bits per sample
	out.WriteString("data")
	_ = binary.Write(&out, binary.LittleEndian, dataLen)
	out.Write(pcm.Bytes())
	return out.Bytes(), nil
}
