package renderer

import (
	"fmt"

	metadata "github.com/richinsley/goisf/metadata"
	program "github.com/richinsley/goisf/program"
	value "github.com/richinsley/goisf/value"
)

// Scene is one loaded ISF shader: its parsed metadata, the current input
// values and the compiled program, all bound to the context generation
// the scene was created against.
//
// Scenes are owned by their Registry. After Reinitialize the registry
// replaces every scene with a new identity; callers must rebind to the
// returned list rather than keep rendering through old pointers.
type Scene struct {
	meta           *metadata.ShaderMetadata
	source         string // raw ISF source, recaptured on recreation
	vertexOverride string
	fragBody       string
	values         map[string]value.TypedValue
	prog           *program.Program
	generation     uint64
	empty          bool
}

// Metadata returns the parsed shader header, or nil for a fallback scene.
func (s *Scene) Metadata() *metadata.ShaderMetadata { return s.meta }

// Generation returns the context generation the scene's GPU resources
// were created against.
func (s *Scene) Generation() uint64 { return s.generation }

// IsEmpty reports whether this is a fallback scene left behind by a
// failed recreation. Empty scenes cannot render.
func (s *Scene) IsEmpty() bool { return s.empty }

// SetInput coerces a host value to the declared type of the named input
// and stores it for subsequent renders.
func (s *Scene) SetInput(name string, v interface{}) error {
	if s.meta == nil {
		return fmt.Errorf("scene has no shader loaded")
	}
	def := s.meta.InputNamed(name)
	if def == nil {
		return fmt.Errorf("shader declares no input named %q", name)
	}
	tv, err := value.Coerce(v, def.Type)
	if err != nil {
		return fmt.Errorf("input %q: %w", name, err)
	}
	s.values[name] = tv
	return nil
}

// SetInputs applies several inputs at once. It fails fast on the first
// bad value; inputs applied before the failure keep their new values.
func (s *Scene) SetInputs(values map[string]interface{}) error {
	for name, v := range values {
		if err := s.SetInput(name, v); err != nil {
			return err
		}
	}
	return nil
}

// CurrentInputs returns a snapshot of the scene's input values.
func (s *Scene) CurrentInputs() map[string]value.TypedValue {
	out := make(map[string]value.TypedValue, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
