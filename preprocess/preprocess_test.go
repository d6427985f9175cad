package preprocess

import (
	"strings"
	"testing"

	metadata "github.com/richinsley/goisf/metadata"
	value "github.com/richinsley/goisf/value"
)

var testInputs = []metadata.InputDefinition{
	{Name: "enabled", Type: value.TypeBool},
	{Name: "steps", Type: value.TypeLong},
	{Name: "level", Type: value.TypeFloat},
	{Name: "center", Type: value.TypePoint2D},
	{Name: "tint", Type: value.TypeColor},
	{Name: "inputImage", Type: value.TypeImage},
}

const legacyBody = `
void main() {
	vec2 uv = isf_FragNormCoord;
	gl_FragColor = tint * level;
}
`

func TestFragmentPipelineIsIdempotent(t *testing.T) {
	p := New(testInputs)
	once := p.Fragment(legacyBody)
	twice := p.Fragment(once)
	if once != twice {
		t.Fatalf("second pipeline run changed the output:\n--- once ---\n%s\n--- twice ---\n%s", once, twice)
	}
}

func TestVertexPipelineIsIdempotent(t *testing.T) {
	p := New(testInputs)
	once := p.Vertex(DefaultVertexSource)
	twice := p.Vertex(once)
	if once != twice {
		t.Fatalf("second pipeline run changed the output:\n--- once ---\n%s\n--- twice ---\n%s", once, twice)
	}
}

func TestVersionDirectiveAdded(t *testing.T) {
	out := New(nil).Fragment("void main() {}\n")
	if !strings.HasPrefix(out, "#version 330\n") {
		t.Errorf("output does not open with the default version directive:\n%s", out)
	}
}

func TestVersionDirectivePromoted(t *testing.T) {
	out := New(nil).Fragment("#version 120\nvoid main() {}\n")
	if !strings.HasPrefix(out, "#version 330\n") {
		t.Errorf("pre-330 directive not promoted:\n%s", out)
	}
	if strings.Contains(out, "#version 120") {
		t.Errorf("old directive left behind:\n%s", out)
	}
}

func TestVersionCoreQualifierNormalized(t *testing.T) {
	out := New(nil).Fragment("#version 330 core\nvoid main() {}\n")
	if strings.Contains(out, "core") {
		t.Errorf("core qualifier not dropped:\n%s", out)
	}
	if !strings.Contains(out, "#version 330\n") {
		t.Errorf("directive mangled:\n%s", out)
	}
}

func TestVersionESDialectPromotedToPlainDirective(t *testing.T) {
	out := New(nil).Fragment("#version 300 es\nvoid main() {}\n")
	if !strings.HasPrefix(out, "#version 330\n") {
		t.Errorf("ES directive not promoted to the plain desktop form:\n%s", out)
	}
	if strings.Contains(out, " es") {
		t.Errorf("es qualifier survived promotion:\n%s", out)
	}
}

func TestLegacyFragColorRewritten(t *testing.T) {
	out := New(nil).Fragment("void main() { gl_FragColor = vec4(1.0); }\n")
	if strings.Contains(out, "gl_FragColor") {
		t.Errorf("gl_FragColor survived the rewrite:\n%s", out)
	}
	if got := strings.Count(out, "out vec4 "+FragColorName+";"); got != 1 {
		t.Errorf("want exactly one output declaration, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, FragColorName+" = vec4(1.0);") {
		t.Errorf("assignment not rewritten:\n%s", out)
	}
}

func TestLegacyFragDataRewritten(t *testing.T) {
	out := New(nil).Fragment("void main() { gl_FragData[0] = vec4(1.0); }\n")
	if strings.Contains(out, "gl_FragData") {
		t.Errorf("gl_FragData survived the rewrite:\n%s", out)
	}
}

func TestModernOutputLeftAlone(t *testing.T) {
	src := "#version 330\nout vec4 color;\nvoid main() { color = vec4(1.0); }\n"
	out := New(nil).Fragment(src)
	if strings.Contains(out, FragColorName) {
		t.Errorf("modern shader should not gain the legacy output:\n%s", out)
	}
}

func TestInputUniformsSynthesized(t *testing.T) {
	out := New(testInputs).Fragment(legacyBody)
	wants := []string{
		"uniform bool enabled;",
		"uniform int steps;",
		"uniform float level;",
		"uniform vec2 center;",
		"uniform vec4 tint;",
		"uniform sampler2D inputImage;",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestExistingUniformDeclarationSkipped(t *testing.T) {
	src := "uniform vec4 tint;\nvoid main() { gl_FragColor = tint; }\n"
	out := New(testInputs).Fragment(src)
	if got := strings.Count(out, "uniform vec4 tint;"); got != 1 {
		t.Errorf("tint declared %d times, want 1:\n%s", got, out)
	}
}

func TestStandardUniformsDeclared(t *testing.T) {
	out := New(nil).Fragment("void main() { gl_FragColor = vec4(TIME); }\n")
	for _, u := range StandardUniforms {
		if !strings.Contains(out, "uniform "+u.GLSLType+" "+u.Name+";") {
			t.Errorf("standard uniform %s not declared:\n%s", u.Name, out)
		}
	}
}

func TestPreexistingStandardUniformSkipped(t *testing.T) {
	src := "uniform float TIME;\nvoid main() { gl_FragColor = vec4(TIME); }\n"
	out := New(nil).Fragment(src)
	if got := strings.Count(out, "uniform float TIME;"); got != 1 {
		t.Errorf("TIME declared %d times, want 1:\n%s", got, out)
	}
}

func TestPrecisionQualifiedDeclarationSkipped(t *testing.T) {
	src := "uniform highp float TIME;\nuniform mediump vec4 tint;\nvoid main() { gl_FragColor = tint * TIME; }\n"
	out := New(testInputs).Fragment(src)
	if strings.Contains(out, "uniform float TIME;") {
		t.Errorf("TIME re-declared despite the precision-qualified declaration:\n%s", out)
	}
	if strings.Contains(out, "uniform vec4 tint;") {
		t.Errorf("tint re-declared despite the precision-qualified declaration:\n%s", out)
	}
}

func TestNormCoordDeclaredWhenReferenced(t *testing.T) {
	out := New(nil).Fragment("void main() { gl_FragColor = vec4(isf_FragNormCoord, 0.0, 1.0); }\n")
	if got := strings.Count(out, "in vec2 "+NormCoordName+";"); got != 1 {
		t.Errorf("varying declared %d times, want 1:\n%s", got, out)
	}
}

func TestVertexInitInjected(t *testing.T) {
	out := New(nil).Vertex(DefaultVertexSource)
	wants := []string{
		"layout(location = 0) in vec2 isf_position;",
		"layout(location = 1) in vec2 isf_texCoord;",
		"out vec2 " + NormCoordName + ";",
		"void isf_vertShaderInit()",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestVertexInitNotInjectedWhenDefined(t *testing.T) {
	src := `layout(location = 0) in vec2 isf_position;
out vec2 isf_FragNormCoord;
void isf_vertShaderInit() {
	gl_Position = vec4(isf_position, 0.0, 1.0);
	isf_FragNormCoord = isf_position * 0.5 + 0.5;
}
void main() { isf_vertShaderInit(); }
`
	out := New(nil).Vertex(src)
	if got := strings.Count(out, "void isf_vertShaderInit()"); got != 1 {
		t.Errorf("init function defined %d times, want 1:\n%s", got, out)
	}
	if strings.Contains(out, "isf_texCoord") {
		t.Errorf("texcoord attribute should not be injected alongside a custom init:\n%s", out)
	}
}

func TestVertexWithoutInitCallUntouched(t *testing.T) {
	src := "#version 330\nlayout(location = 0) in vec2 pos;\nvoid main() { gl_Position = vec4(pos, 0.0, 1.0); }\n"
	out := New(nil).Vertex(src)
	if strings.Contains(out, "isf_vertShaderInit") {
		t.Errorf("init helper injected into a shader that never calls it:\n%s", out)
	}
}
