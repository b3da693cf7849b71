// Package extent models which part of a node an anchor refers to.
//
// An Extent is a closed sum type: None (the whole node), Text (a character
// range) or Image (a rectangle). Every consumer switches over the three
// variants; Equal is the only definition of "same region".
package extent

import (
	"fmt"
	"math"
	"strconv"

	"github.com/starford/anchorage/internal/apperr"
)

// Kind discriminates extent variants.
type Kind string

// Extent kinds.
const (
	KindNone  Kind = "none"
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Extent is implemented only by None, Text and Image.
type Extent interface {
	Kind() Kind
	sealed()
}

// None refers to the whole node.
type None struct{}

// Text is a character range inside a text node. Text is informative only and
// does not take part in equality.
type Text struct {
	StartCharacter int
	EndCharacter   int
	Text           string
}

// Image is a rectangle inside an image node, in pixels.
type Image struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

func (None) Kind() Kind  { return KindNone }
func (Text) Kind() Kind  { return KindText }
func (Image) Kind() Kind { return KindImage }

func (None) sealed()  {}
func (Text) sealed()  {}
func (Image) sealed() {}

// Normalize maps nil and pointer variants onto their value form.
func Normalize(e Extent) Extent {
	switch v := e.(type) {
	case nil:
		return None{}
	case *None:
		return None{}
	case *Text:
		if v == nil {
			return None{}
		}
		return *v
	case *Image:
		if v == nil {
			return None{}
		}
		return *v
	default:
		return e
	}
}

// Equal reports whether a and b denote the same region. Text extents compare
// bounds only; image extents compare all four numbers.
func Equal(a, b Extent) bool {
	a, b = Normalize(a), Normalize(b)
	switch x := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Text:
		y, ok := b.(Text)
		return ok && x.StartCharacter == y.StartCharacter && x.EndCharacter == y.EndCharacter
	case Image:
		y, ok := b.(Image)
		return ok && x.Top == y.Top && x.Left == y.Left && x.Width == y.Width && x.Height == y.Height
	}
	return false
}

// IsWholeNode reports whether e refers to the entire node.
func IsWholeNode(e Extent) bool {
	_, ok := Normalize(e).(None)
	return ok
}

// Validate checks the variant's field constraints.
func Validate(e Extent) error {
	switch v := Normalize(e).(type) {
	case None:
		return nil
	case Text:
		if v.StartCharacter < 0 || v.StartCharacter > v.EndCharacter {
			return fmt.Errorf("%w: text extent [%d,%d]", apperr.ErrInvalidArgument, v.StartCharacter, v.EndCharacter)
		}
		return nil
	case Image:
		for _, f := range []float64{v.Top, v.Left, v.Width, v.Height} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: image extent has non-finite value", apperr.ErrInvalidArgument)
			}
		}
		if v.Top < 0 || v.Left < 0 || v.Width <= 0 || v.Height <= 0 {
			return fmt.Errorf("%w: image extent %gx%g at (%g,%g)", apperr.ErrInvalidArgument, v.Width, v.Height, v.Left, v.Top)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown extent %T", apperr.ErrInvalidArgument, e)
}

// Key returns a canonical string of the fields that take part in equality.
// Equal(a, b) holds exactly when Key(a) == Key(b) for valid extents.
func Key(e Extent) string {
	switch v := Normalize(e).(type) {
	case Text:
		return "text:" + strconv.Itoa(v.StartCharacter) + ":" + strconv.Itoa(v.EndCharacter)
	case Image:
		return "image:" + num(v.Top) + ":" + num(v.Left) + ":" + num(v.Width) + ":" + num(v.Height)
	default:
		return string(KindNone)
	}
}

// Label is a short human description used in link menus.
func Label(e Extent) string {
	switch Normalize(e).(type) {
	case Text:
		return "text selection"
	case Image:
		return "image selection"
	default:
		return "whole node"
	}
}

func num(f float64) string {
	if f == 0 {
		f = 0 // folds -0
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
