package validate

import (
	"errors"
	"testing"

	metadata "github.com/richinsley/goisf/metadata"
	program "github.com/richinsley/goisf/program"
)

func requireTranslator(t *testing.T) {
	t.Helper()
	if _, err := getTranslator(); err != nil {
		t.Skipf("shader translator unavailable: %v", err)
	}
}

const goodShader = `/*{
	"DESCRIPTION": "ramp",
	"INPUTS": [
		{"NAME": "level", "TYPE": "float", "DEFAULT": 0.5}
	]
}*/
void main() {
	gl_FragColor = vec4(isf_FragNormCoord * level, 0.0, 1.0);
}
`

func TestSourceAcceptsValidShader(t *testing.T) {
	requireTranslator(t)
	if err := Source(goodShader); err != nil {
		t.Fatalf("Source rejected a valid shader: %v", err)
	}
}

func TestSourceReportsHeaderErrors(t *testing.T) {
	err := Source("void main() {}")
	var pe *metadata.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want a *metadata.ParseError for a missing header, got %v", err)
	}
}

func TestSourceReportsFragmentErrors(t *testing.T) {
	requireTranslator(t)
	err := Source(`/*{"INPUTS": []}*/ void main() { gl_FragColor = banana; }`)
	var ce *program.CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("want a *program.CompilationError, got %v", err)
	}
	if ce.Stage != "fragment" {
		t.Errorf("Stage = %q, want fragment", ce.Stage)
	}
}

func TestSourceWithVertexReportsVertexErrors(t *testing.T) {
	requireTranslator(t)
	err := SourceWithVertex(goodShader, "void main() { gl_Position = banana; }\n")
	var ce *program.CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("want a *program.CompilationError, got %v", err)
	}
	if ce.Stage != "vertex" {
		t.Errorf("Stage = %q, want vertex", ce.Stage)
	}
}
