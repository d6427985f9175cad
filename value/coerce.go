package value

import "fmt"

// CoercionError reports a host value that cannot be mapped onto a declared
// input type.
type CoercionError struct {
	Value  interface{}
	Target Type
	Reason string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot convert %T to %s: %s", e.Value, e.Target, e.Reason)
}

// Coerce converts a host value to a TypedValue of the target type.
//
// A TypedValue whose Kind already matches the target passes through
// unchanged. Booleans additionally accept numerics by truthiness, longs
// accept floats by truncation toward zero, floats accept ints, points
// accept ordered pairs and colors accept RGB triples (alpha defaults to
// 1.0) or RGBA quadruples. Image-backed types never coerce.
func Coerce(v interface{}, target Type) (TypedValue, error) {
	if tv, ok := v.(TypedValue); ok {
		if tv.Kind == target {
			return tv, nil
		}
		return TypedValue{}, &CoercionError{Value: v, Target: target,
			Reason: fmt.Sprintf("already typed as %s", tv.Kind)}
	}

	switch target {
	case TypeBool:
		if b, ok := v.(bool); ok {
			return BoolVal(b), nil
		}
		if f, ok := toFloat(v); ok {
			return BoolVal(f != 0), nil
		}
		return TypedValue{}, &CoercionError{Value: v, Target: target, Reason: "expected a bool or a number"}

	case TypeLong:
		if f, ok := toFloat(v); ok {
			// Truncation toward zero, matching int64 conversion semantics.
			return LongVal(int64(f)), nil
		}
		return TypedValue{}, &CoercionError{Value: v, Target: target, Reason: "expected an integer or a float"}

	case TypeFloat:
		if f, ok := toFloat(v); ok {
			return FloatVal(f), nil
		}
		return TypedValue{}, &CoercionError{Value: v, Target: target, Reason: "expected a number"}

	case TypePoint2D:
		elems, ok := toElems(v)
		if !ok {
			return TypedValue{}, &CoercionError{Value: v, Target: target, Reason: "expected an ordered pair of numbers"}
		}
		if len(elems) != 2 {
			return TypedValue{}, &CoercionError{Value: v, Target: target,
				Reason: fmt.Sprintf("expected 2 components, got %d", len(elems))}
		}
		nums, ok := toFloats(elems)
		if !ok {
			return TypedValue{}, &CoercionError{Value: v, Target: target, Reason: "values must be numbers"}
		}
		return Point2DVal(nums[0], nums[1]), nil

	case TypeColor:
		elems, ok := toElems(v)
		if !ok {
			return TypedValue{}, &CoercionError{Value: v, Target: target, Reason: "expected 3 or 4 color components"}
		}
		if len(elems) != 3 && len(elems) != 4 {
			return TypedValue{}, &CoercionError{Value: v, Target: target,
				Reason: fmt.Sprintf("expected 3 or 4 components, got %d", len(elems))}
		}
		nums, ok := toFloats(elems)
		if !ok {
			return TypedValue{}, &CoercionError{Value: v, Target: target, Reason: "values must be numbers"}
		}
		if len(nums) == 3 {
			return ColorVal(nums[0], nums[1], nums[2], 1.0), nil
		}
		return ColorVal(nums[0], nums[1], nums[2], nums[3]), nil

	case TypeImage, TypeAudio, TypeAudioFFT:
		return TypedValue{}, &CoercionError{Value: v, Target: target,
			Reason: "image-backed inputs cannot be set from a host value"}
	}

	return TypedValue{}, &CoercionError{Value: v, Target: target, Reason: "unknown target type"}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// toElems flattens the sequence shapes a caller (or a decoded JSON DEFAULT)
// may hand us into a uniform []interface{}.
func toElems(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []float64:
		out := make([]interface{}, len(s))
		for i, f := range s {
			out[i] = f
		}
		return out, true
	case []float32:
		out := make([]interface{}, len(s))
		for i, f := range s {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]interface{}, len(s))
		for i, n := range s {
			out[i] = n
		}
		return out, true
	case []string:
		out := make([]interface{}, len(s))
		for i, str := range s {
			out[i] = str
		}
		return out, true
	case [2]float64:
		return []interface{}{s[0], s[1]}, true
	case [3]float64:
		return []interface{}{s[0], s[1], s[2]}, true
	case [4]float64:
		return []interface{}{s[0], s[1], s[2], s[3]}, true
	}
	return nil, false
}

func toFloats(elems []interface{}) ([]float64, bool) {
	out := make([]float64, len(elems))
	for i, e := range elems {
		f, ok := toFloat(e)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}
