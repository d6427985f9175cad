// Package metadata parses the JSON comment block that opens every ISF
// shader and exposes the declared inputs as typed definitions.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	value "github.com/richinsley/goisf/value"
)

// ParseError reports a shader whose metadata block is missing, malformed,
// or declares something the renderer does not understand.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("isf metadata: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("isf metadata: %s", e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InputDefinition describes one declared shader input. Definitions are
// immutable once parsed.
type InputDefinition struct {
	Name    string
	Type    value.Type
	Default value.TypedValue
	Min     *float64
	Max     *float64
}

// ShaderMetadata is the parsed, immutable header of an ISF shader.
type ShaderMetadata struct {
	Name         string
	Description  string
	Credit       string
	Categories   []string
	Version      string
	Inputs       []InputDefinition
	VertexSource string // optional override, supplied alongside the fragment source
}

// InputNamed returns the definition with the given name, or nil.
func (m *ShaderMetadata) InputNamed(name string) *InputDefinition {
	for i := range m.Inputs {
		if m.Inputs[i].Name == name {
			return &m.Inputs[i]
		}
	}
	return nil
}

type isfHeader struct {
	Name        string     `json:"NAME"`
	Description string     `json:"DESCRIPTION"`
	Credit      string     `json:"CREDIT"`
	Categories  []string   `json:"CATEGORIES"`
	Vsn         string     `json:"VSN"`
	IsfVsn      string     `json:"ISFVSN"`
	Inputs      []isfInput `json:"INPUTS"`
}

type isfInput struct {
	Name    string      `json:"NAME"`
	Type    string      `json:"TYPE"`
	Default interface{} `json:"DEFAULT"`
	Min     *float64    `json:"MIN"`
	Max     *float64    `json:"MAX"`
}

// parseInputType maps an ISF TYPE string onto a value.Type. Matching is
// case-insensitive; "event" declares a bool-backed momentary input.
func parseInputType(s string) (value.Type, bool) {
	switch strings.ToLower(s) {
	case "bool", "event":
		return value.TypeBool, true
	case "long":
		return value.TypeLong, true
	case "float":
		return value.TypeFloat, true
	case "point2d":
		return value.TypePoint2D, true
	case "color":
		return value.TypeColor, true
	case "image":
		return value.TypeImage, true
	case "audio":
		return value.TypeAudio, true
	case "audiofft":
		return value.TypeAudioFFT, true
	}
	return value.TypeNone, false
}

// Parse extracts the leading /*{ ... }*/ metadata block from an ISF shader
// and returns it together with the GLSL body that follows. Unknown JSON
// keys are ignored. A missing DEFAULT falls back to the type's zero value.
func Parse(source string) (*ShaderMetadata, string, error) {
	open := strings.Index(source, "/*{")
	if open < 0 {
		return nil, "", &ParseError{Msg: "shader is missing the leading /*{ ... }*/ metadata block"}
	}
	closeIdx := strings.Index(source[open:], "}*/")
	if closeIdx < 0 {
		return nil, "", &ParseError{Msg: "metadata block is not terminated with }*/"}
	}
	closeIdx += open

	jsonText := source[open+2 : closeIdx+1] // the {...} object between the comment markers
	body := source[closeIdx+3:]

	var header isfHeader
	if err := json.Unmarshal([]byte(jsonText), &header); err != nil {
		return nil, "", &ParseError{Msg: "metadata block is not valid JSON", Err: err}
	}

	meta := &ShaderMetadata{
		Name:        header.Name,
		Description: header.Description,
		Credit:      header.Credit,
		Categories:  header.Categories,
		Version:     header.Vsn,
	}
	if meta.Version == "" {
		meta.Version = header.IsfVsn
	}

	seen := make(map[string]struct{}, len(header.Inputs))
	for _, in := range header.Inputs {
		if in.Name == "" {
			return nil, "", &ParseError{Msg: "input declaration is missing a NAME"}
		}
		if _, dup := seen[in.Name]; dup {
			return nil, "", &ParseError{Msg: fmt.Sprintf("duplicate input name %q", in.Name)}
		}
		seen[in.Name] = struct{}{}

		t, ok := parseInputType(in.Type)
		if !ok {
			return nil, "", &ParseError{Msg: fmt.Sprintf("input %q declares unrecognized TYPE %q", in.Name, in.Type)}
		}

		def := InputDefinition{Name: in.Name, Type: t, Min: in.Min, Max: in.Max}
		if !t.UsesImage() {
			if in.Default == nil {
				def.Default = value.DefaultFor(t)
			} else {
				tv, err := value.Coerce(in.Default, t)
				if err != nil {
					return nil, "", &ParseError{Msg: fmt.Sprintf("input %q has an unusable DEFAULT", in.Name), Err: err}
				}
				def.Default = tv
			}
		}
		meta.Inputs = append(meta.Inputs, def)
	}

	return meta, body, nil
}
