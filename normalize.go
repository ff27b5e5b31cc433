package main

import (
	"bytes"
	"encoding/json"
	"math"
)

// BeatValue is one element of an analysis result's "beats" array.
// Two upstream pipelines survive in the wild: the older one emits bare
// timestamps ([0.534, 1.068, ...]), the newer one emits objects
// ({"time": 0.534, "beatNum": 2}). Both decode into this single type so
// shape-sniffing happens exactly once, at the JSON boundary.
type BeatValue struct {
	Time    float64
	BeatNum int
	valid   bool
}

// BeatAt builds a valid BeatValue, as the object-shaped pipelines would.
func BeatAt(time float64, beatNum int) BeatValue {
	return BeatValue{Time: time, BeatNum: beatNum, valid: true}
}

// BeatTime builds a valid BeatValue carrying only a timestamp, as the
// bare-number pipelines would.
func BeatTime(time float64) BeatValue {
	return BeatValue{Time: time, valid: true}
}

// Valid reports whether the element carried a usable time value.
func (b BeatValue) Valid() bool {
	return b.valid && !math.IsNaN(b.Time) && !math.IsInf(b.Time, 0)
}

// UnmarshalJSON accepts either wire shape. A malformed element is
// recorded as invalid rather than failing the whole result; the
// normalization step drops it later.
func (b *BeatValue) UnmarshalJSON(data []byte) error {
	*b = BeatValue{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '{' {
		var obj struct {
			Time    *float64 `json:"time"`
			BeatNum int      `json:"beatNum"`
		}
		if err := json.Unmarshal(data, &obj); err != nil || obj.Time == nil {
			return nil
		}
		b.Time = *obj.Time
		b.BeatNum = obj.BeatNum
		b.valid = true
		return nil
	}

	var t float64
	if err := json.Unmarshal(data, &t); err != nil {
		return nil
	}
	b.Time = t
	b.valid = true
	return nil
}

// MarshalJSON writes the element back in the shape it most likely came
// from: an object when a beat number is attached, a bare timestamp
// otherwise. Invalid elements round-trip as null.
func (b BeatValue) MarshalJSON() ([]byte, error) {
	if !b.Valid() {
		return []byte("null"), nil
	}
	if b.BeatNum > 0 {
		return json.Marshal(struct {
			Time    float64 `json:"time"`
			BeatNum int     `json:"beatNum"`
		}{b.Time, b.BeatNum})
	}
	return json.Marshal(b.Time)
}

// NormalizeBeats produces the canonical timestamp array the rest of the
// engine works on. Invalid or negative-time elements are skipped, not
// fatal, so the output may be shorter than the input. The input slice is
// never mutated.
func NormalizeBeats(beats []BeatValue) []float64 {
	if len(beats) == 0 {
		return nil
	}
	out := make([]float64, 0, len(beats))
	for _, b := range beats {
		if !b.Valid() || b.Time < 0 {
			continue
		}
		out = append(out, b.Time)
	}
	return out
}
