package tonal

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFrequency is returned for non-positive or non-finite frequencies
// and reference pitches.
var ErrInvalidFrequency = errors.New("tonal: invalid frequency")

// DefaultReferencePitch is concert A4 in Hz
const DefaultReferencePitch = 440.0

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is the nearest equal-tempered note to a frequency
type Note struct {
	Name   string  `json:"note"`   // pitch class with sharps, e.g. "D#"
	Octave int     `json:"octave"` // scientific pitch notation, C4 = MIDI 60
	Cents  int     `json:"cents"`  // deviation from the note, [-50, 50]
	MIDI   int     `json:"midi"`   // nearest MIDI note number
	Target float64 `json:"target"` // exact frequency of the note in Hz
}

// String returns the note in scientific pitch notation with its deviation,
// e.g. "A4 +0c".
func (n Note) String() string {
	return fmt.Sprintf("%s%d %+dc", n.Name, n.Octave, n.Cents)
}

// NoteClassifier maps frequencies to 12-TET notes against a reference pitch
type NoteClassifier struct {
	reference float64
}

// NewNoteClassifier creates a classifier tuned to reference Hz for A4.
func NewNoteClassifier(reference float64) (*NoteClassifier, error) {
	if !validFrequency(reference) {
		return nil, fmt.Errorf("%w: reference pitch %g Hz", ErrInvalidFrequency, reference)
	}
	return &NoteClassifier{reference: reference}, nil
}

// Reference returns the A4 reference pitch in Hz
func (nc *NoteClassifier) Reference() float64 {
	return nc.reference
}

// Classify returns the nearest note to frequency
func (nc *NoteClassifier) Classify(frequency float64) (Note, error) {
	if !validFrequency(frequency) {
		return Note{}, fmt.Errorf("%w: %g Hz", ErrInvalidFrequency, frequency)
	}

	// A4 = MIDI note 69
	midi := 69 + 12*math.Log2(frequency/nc.reference)
	nearest := int(math.Round(midi))
	cents := int(math.Round(100 * (midi - float64(nearest))))

	return Note{
		Name:   noteNames[mod(nearest, 12)],
		Octave: floorDiv(nearest, 12) - 1,
		Cents:  max(-50, min(50, cents)),
		MIDI:   nearest,
		Target: nc.Frequency(nearest),
	}, nil
}

// Frequency returns the equal-tempered frequency of a MIDI note number
func (nc *NoteClassifier) Frequency(midi int) float64 {
	return nc.reference * math.Pow(2, float64(midi-69)/12)
}

func validFrequency(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

func floorDiv(a, n int) int {
	q := a / n
	if a%n != 0 && (a < 0) != (n < 0) {
		q--
	}
	return q
}
