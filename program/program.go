// Package program wraps GPU shader program objects: compilation and
// linking with driver diagnostics, uniform location caching and typed
// uniform writes.
package program

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	value "github.com/richinsley/goisf/value"
)

// CompilationError carries the driver's diagnostic text for a rejected
// shader along with the stage ("vertex", "fragment" or "link") that failed.
type CompilationError struct {
	Stage string
	Log   string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s stage failed: %s", e.Stage, strings.TrimRight(e.Log, "\x00\n"))
}

// Program is a linked GPU program plus its resolved uniform locations.
// An absent location (-1) is a legitimate outcome — the driver optimized
// the uniform out — and writes to it silently no-op.
type Program struct {
	id        uint32
	locations map[string]int32
}

// CompileAndLink compiles both stages and links them into a program.
// The intermediate shader objects are released regardless of outcome.
func CompileAndLink(vertexSrc, fragmentSrc string) (*Program, error) {
	vertexShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return nil, err
	}
	fragmentShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		gl.DeleteShader(vertexShader)
		return nil, err
	}

	id := gl.CreateProgram()
	gl.AttachShader(id, vertexShader)
	gl.AttachShader(id, fragmentShader)
	gl.LinkProgram(id)

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(id)
		return nil, &CompilationError{Stage: "link", Log: logText}
	}

	return &Program{id: id, locations: make(map[string]int32)}, nil
}

func compileShader(source string, shaderType uint32, stage string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, &CompilationError{Stage: stage, Log: logText}
	}
	return shader, nil
}

// ID returns the underlying GL program object, or 0 after Cleanup.
func (p *Program) ID() uint32 { return p.id }

// Use binds the program for subsequent uniform writes and draws.
func (p *Program) Use() { gl.UseProgram(p.id) }

// ResolveUniforms queries and caches locations for every given name.
// Names the driver reports inactive cache a -1 location so later writes
// become no-ops rather than failures.
func (p *Program) ResolveUniforms(names []string) {
	for _, name := range names {
		p.locations[name] = gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	}
}

// Location returns the cached location for a name. The second return is
// false when the name was never resolved.
func (p *Program) Location(name string) (int32, bool) {
	loc, ok := p.locations[name]
	return loc, ok
}

// SetUniform writes a typed value to a named uniform slot. The program
// must be in use. Unresolved or optimized-out locations are skipped.
func (p *Program) SetUniform(name string, v value.TypedValue) {
	loc, ok := p.locations[name]
	if !ok || loc < 0 {
		return
	}
	switch v.Kind {
	case value.TypeBool:
		var b int32
		if v.Bool {
			b = 1
		}
		gl.Uniform1i(loc, b)
	case value.TypeLong:
		gl.Uniform1i(loc, int32(v.Long))
	case value.TypeFloat:
		gl.Uniform1f(loc, float32(v.Float))
	case value.TypePoint2D:
		gl.Uniform2f(loc, float32(v.Point[0]), float32(v.Point[1]))
	case value.TypeColor:
		gl.Uniform4f(loc, float32(v.Color[0]), float32(v.Color[1]), float32(v.Color[2]), float32(v.Color[3]))
	}
}

// SetInt writes an int uniform by name; no-op when unresolved.
func (p *Program) SetInt(name string, v int32) {
	if loc, ok := p.locations[name]; ok && loc >= 0 {
		gl.Uniform1i(loc, v)
	}
}

// SetFloat writes a float uniform by name; no-op when unresolved.
func (p *Program) SetFloat(name string, v float32) {
	if loc, ok := p.locations[name]; ok && loc >= 0 {
		gl.Uniform1f(loc, v)
	}
}

// SetVec2 writes a vec2 uniform by name; no-op when unresolved.
func (p *Program) SetVec2(name string, x, y float32) {
	if loc, ok := p.locations[name]; ok && loc >= 0 {
		gl.Uniform2f(loc, x, y)
	}
}

// SetVec4 writes a vec4 uniform by name; no-op when unresolved.
func (p *Program) SetVec4(name string, x, y, z, w float32) {
	if loc, ok := p.locations[name]; ok && loc >= 0 {
		gl.Uniform4f(loc, x, y, z, w)
	}
}

// Cleanup releases the program object. Safe to call more than once.
func (p *Program) Cleanup() {
	if p == nil || p.id == 0 {
		return
	}
	gl.DeleteProgram(p.id)
	p.id = 0
}
