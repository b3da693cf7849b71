package extent

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/anchorage/internal/apperr"
)

// wire is the JSON shape of a non-whole extent. The whole node is encoded as null.
type wire struct {
	Type           Kind     `json:"type"`
	StartCharacter *int     `json:"startCharacter,omitempty"`
	EndCharacter   *int     `json:"endCharacter,omitempty"`
	Text           *string  `json:"text,omitempty"`
	Top            *float64 `json:"top,omitempty"`
	Left           *float64 `json:"left,omitempty"`
	Width          *float64 `json:"width,omitempty"`
	Height         *float64 `json:"height,omitempty"`
}

// Marshal encodes e in its wire form.
func Marshal(e Extent) ([]byte, error) {
	switch v := Normalize(e).(type) {
	case None:
		return []byte("null"), nil
	case Text:
		return json.Marshal(wire{
			Type:           KindText,
			StartCharacter: &v.StartCharacter,
			EndCharacter:   &v.EndCharacter,
			Text:           &v.Text,
		})
	case Image:
		return json.Marshal(wire{
			Type:   KindImage,
			Top:    &v.Top,
			Left:   &v.Left,
			Width:  &v.Width,
			Height: &v.Height,
		})
	}
	return nil, fmt.Errorf("extent: marshal %T", e)
}

// Unmarshal decodes the wire form. null, empty input and {"type":"none"}
// all decode to None.
func Unmarshal(data []byte) (Extent, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return None{}, nil
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: extent: %v", apperr.ErrInvalidArgument, err)
	}
	switch w.Type {
	case KindNone, "":
		return None{}, nil
	case KindText:
		if w.StartCharacter == nil || w.EndCharacter == nil {
			return nil, fmt.Errorf("%w: text extent needs startCharacter and endCharacter", apperr.ErrInvalidArgument)
		}
		t := Text{StartCharacter: *w.StartCharacter, EndCharacter: *w.EndCharacter}
		if w.Text != nil {
			t.Text = *w.Text
		}
		return t, nil
	case KindImage:
		if w.Top == nil || w.Left == nil || w.Width == nil || w.Height == nil {
			return nil, fmt.Errorf("%w: image extent needs top, left, width and height", apperr.ErrInvalidArgument)
		}
		return Image{Top: *w.Top, Left: *w.Left, Width: *w.Width, Height: *w.Height}, nil
	}
	return nil, fmt.Errorf("%w: unknown extent type %q", apperr.ErrInvalidArgument, w.Type)
}

// Value adapts an Extent to encoding/json so it can sit in request and
// response structs.
type Value struct {
	E Extent
}

// Of wraps e.
func Of(e Extent) Value { return Value{E: Normalize(e)} }

// Get returns the wrapped extent, None when unset.
func (v Value) Get() Extent { return Normalize(v.E) }

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return Marshal(v.E)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	e, err := Unmarshal(data)
	if err != nil {
		return err
	}
	v.E = e
	return nil
}
