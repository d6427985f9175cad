// Package value defines the typed values that can be bound to ISF shader
// inputs, and the coercion rules that map loosely-typed host values onto
// them.
package value

import "fmt"

// Type identifies the declared type of an ISF input.
type Type int

const (
	TypeNone Type = iota
	TypeBool
	TypeLong
	TypeFloat
	TypePoint2D
	TypeColor
	TypeImage
	TypeAudio
	TypeAudioFFT
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeLong:
		return "Long"
	case TypeFloat:
		return "Float"
	case TypePoint2D:
		return "Point2D"
	case TypeColor:
		return "Color"
	case TypeImage:
		return "Image"
	case TypeAudio:
		return "Audio"
	case TypeAudioFFT:
		return "AudioFFT"
	}
	return "None"
}

// UsesImage reports whether the type is backed by a texture rather than a
// plain uniform value.
func (t Type) UsesImage() bool {
	return t == TypeImage || t == TypeAudio || t == TypeAudioFFT
}

// TypedValue is a tagged union holding exactly one of the supported value
// shapes. Only the field matching Kind is meaningful.
type TypedValue struct {
	Kind  Type
	Bool  bool
	Long  int64
	Float float64
	Point [2]float64
	Color [4]float64
}

func BoolVal(v bool) TypedValue        { return TypedValue{Kind: TypeBool, Bool: v} }
func LongVal(v int64) TypedValue       { return TypedValue{Kind: TypeLong, Long: v} }
func FloatVal(v float64) TypedValue    { return TypedValue{Kind: TypeFloat, Float: v} }
func Point2DVal(x, y float64) TypedValue {
	return TypedValue{Kind: TypePoint2D, Point: [2]float64{x, y}}
}
func ColorVal(r, g, b, a float64) TypedValue {
	return TypedValue{Kind: TypeColor, Color: [4]float64{r, g, b, a}}
}

// IsNull reports whether the value carries no type at all.
func (v TypedValue) IsNull() bool { return v.Kind == TypeNone }

func (v TypedValue) String() string {
	switch v.Kind {
	case TypeBool:
		return fmt.Sprintf("Bool(%t)", v.Bool)
	case TypeLong:
		return fmt.Sprintf("Long(%d)", v.Long)
	case TypeFloat:
		return fmt.Sprintf("Float(%g)", v.Float)
	case TypePoint2D:
		return fmt.Sprintf("Point2D(%g, %g)", v.Point[0], v.Point[1])
	case TypeColor:
		return fmt.Sprintf("Color(%g, %g, %g, %g)", v.Color[0], v.Color[1], v.Color[2], v.Color[3])
	}
	return "Null"
}

// DefaultFor returns the zero value for a declared input type: false, 0,
// 0.0, (0,0) and opaque black respectively. Image-backed types have no
// default value.
func DefaultFor(t Type) TypedValue {
	switch t {
	case TypeBool:
		return BoolVal(false)
	case TypeLong:
		return LongVal(0)
	case TypeFloat:
		return FloatVal(0)
	case TypePoint2D:
		return Point2DVal(0, 0)
	case TypeColor:
		return ColorVal(0, 0, 0, 1)
	}
	return TypedValue{}
}
