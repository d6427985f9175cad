// Package preprocess turns partial ISF shader text into compilable GLSL.
//
// The pipeline is a fixed, order-sensitive chain of source transforms:
// version-directive normalization, legacy fragment-output rewriting,
// input-uniform synthesis, standard-uniform synthesis and (for vertex
// sources) injection of the conventional isf_vertShaderInit helper. Every
// pass is idempotent: running the full pipeline on its own output is a
// byte-identical no-op. The pipeline never rejects input; malformed GLSL
// surfaces later as a compilation error.
package preprocess

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	metadata "github.com/richinsley/goisf/metadata"
	value "github.com/richinsley/goisf/value"
)

// minVersion is the lowest GLSL version the 3.3 core context accepts.
// Legacy ISF shaders (GLSL 120-era) are promoted to it.
const minVersion = 330

// FragColorName is the canonical fragment output that legacy
// gl_FragColor/gl_FragData writes are rewritten to.
const FragColorName = "isf_FragColor"

// NormCoordName is the conventional normalized fragment coordinate varying.
const NormCoordName = "isf_FragNormCoord"

// DefaultVertexSource is used when a shader carries no vertex override.
// The pipeline supplies the init function and attribute declarations.
const DefaultVertexSource = `void main() {
	isf_vertShaderInit();
}
`

// StandardUniforms is the fixed set of uniforms every ISF program exposes,
// in declaration order.
var StandardUniforms = []struct {
	Name     string
	GLSLType string
}{
	{"PASSINDEX", "int"},
	{"RENDERSIZE", "vec2"},
	{"TIME", "float"},
	{"TIMEDELTA", "float"},
	{"DATE", "vec4"},
	{"FRAMEINDEX", "int"},
}

// Pipeline preprocesses vertex and fragment sources for one set of
// declared inputs.
type Pipeline struct {
	inputs []metadata.InputDefinition
}

func New(inputs []metadata.InputDefinition) *Pipeline {
	return &Pipeline{inputs: inputs}
}

// Fragment runs the fragment-shader pass chain.
func (p *Pipeline) Fragment(src string) string {
	src = ensureVersion(src)
	src = rewriteLegacyOutputs(src)
	src = p.declareInputUniforms(src)
	src = declareStandardUniforms(src)
	src = declareNormCoordInput(src)
	return src
}

// Vertex runs the vertex-shader pass chain.
func (p *Pipeline) Vertex(src string) string {
	src = ensureVersion(src)
	src = p.declareInputUniforms(src)
	src = declareStandardUniforms(src)
	src = injectVertexInit(src)
	return src
}

var versionRe = regexp.MustCompile(`(?m)^[ \t]*#version[ \t]+(\d+)(?:[ \t]+([A-Za-z]+))?[ \t]*\r?$`)

// ensureVersion prefixes a default #version directive when absent,
// promotes pre-330 versions, and drops the redundant "core" profile
// qualifier some authoring tools emit.
func ensureVersion(src string) string {
	loc := versionRe.FindStringSubmatchIndex(src)
	if loc == nil {
		return fmt.Sprintf("#version %d\n", minVersion) + src
	}

	num, _ := strconv.Atoi(src[loc[2]:loc[3]])
	if num < minVersion {
		num = minVersion
	}
	// "core" is redundant in plain-form directives, and "es" names a
	// dialect the 3.3 core context cannot compile, so neither survives.
	qualifier := ""
	if loc[4] >= 0 {
		if q := src[loc[4]:loc[5]]; q != "core" && !strings.EqualFold(q, "es") {
			qualifier = " " + q
		}
	}
	directive := fmt.Sprintf("#version %d%s", num, qualifier)

	out := src[:loc[0]] + directive + src[loc[1]:]
	// Guarantee a line break after the directive so later passes have an
	// insertion point.
	if end := loc[0] + len(directive); end >= len(out) || out[end] != '\n' {
		out = out[:end] + "\n" + out[end:]
	}
	return out
}

var (
	fragDataRe     = regexp.MustCompile(`gl_FragData\s*\[\s*0\s*\]`)
	fragColorDecRe = regexp.MustCompile(`(?m)^\s*out\s+vec4\s+` + FragColorName + `\s*;`)
)

// rewriteLegacyOutputs maps gl_FragColor / gl_FragData[0] writes onto one
// canonical declared output.
func rewriteLegacyOutputs(src string) string {
	had := strings.Contains(src, "gl_FragColor") || fragDataRe.MatchString(src)
	if had {
		src = fragDataRe.ReplaceAllString(src, FragColorName)
		src = strings.ReplaceAll(src, "gl_FragColor", FragColorName)
	}
	if strings.Contains(src, FragColorName) && !fragColorDecRe.MatchString(src) {
		src = insertAfterVersion(src, "out vec4 "+FragColorName+";\n")
	}
	return src
}

// glslTypeFor maps a declared input type onto its uniform slot type.
func glslTypeFor(t value.Type) string {
	switch t {
	case value.TypeBool:
		return "bool"
	case value.TypeLong:
		return "int"
	case value.TypeFloat:
		return "float"
	case value.TypePoint2D:
		return "vec2"
	case value.TypeColor:
		return "vec4"
	}
	// Image, Audio and AudioFFT inputs bind as 2D samplers.
	return "sampler2D"
}

func uniformDeclared(src, name string) bool {
	re := regexp.MustCompile(`\buniform\s+(?:(?:lowp|mediump|highp)\s+)?[A-Za-z_][A-Za-z0-9_]*\s+` + regexp.QuoteMeta(name) + `\s*[;=\[]`)
	return re.MatchString(src)
}

// declareInputUniforms synthesizes a uniform declaration for every declared
// input the source does not already declare itself.
func (p *Pipeline) declareInputUniforms(src string) string {
	var b strings.Builder
	for _, in := range p.inputs {
		if uniformDeclared(src, in.Name) {
			continue
		}
		fmt.Fprintf(&b, "uniform %s %s;\n", glslTypeFor(in.Type), in.Name)
	}
	if b.Len() == 0 {
		return src
	}
	return insertAfterVersion(src, b.String())
}

// declareStandardUniforms ensures the fixed ISF uniform set is declared,
// skipping names the source (or an earlier pass) already declares.
func declareStandardUniforms(src string) string {
	var b strings.Builder
	for _, u := range StandardUniforms {
		if uniformDeclared(src, u.Name) {
			continue
		}
		fmt.Fprintf(&b, "uniform %s %s;\n", u.GLSLType, u.Name)
	}
	if b.Len() == 0 {
		return src
	}
	return insertAfterVersion(src, b.String())
}

var normCoordDecRe = regexp.MustCompile(`(?m)^\s*in\s+vec2\s+` + NormCoordName + `\s*;`)

// declareNormCoordInput declares the normalized coordinate varying in
// fragment sources that reference it without declaring it.
func declareNormCoordInput(src string) string {
	if !strings.Contains(src, NormCoordName) || normCoordDecRe.MatchString(src) {
		return src
	}
	return insertAfterVersion(src, "in vec2 "+NormCoordName+";\n")
}

var (
	vertInitDefRe   = regexp.MustCompile(`void\s+isf_vertShaderInit\s*\(`)
	positionAttrRe  = regexp.MustCompile(`\bin\s+vec2\s+isf_position\b`)
	texCoordAttrRe  = regexp.MustCompile(`\bin\s+vec2\s+isf_texCoord\b`)
	normCoordOutRe  = regexp.MustCompile(`(?m)^\s*out\s+vec2\s+` + NormCoordName + `\s*;`)
)

// injectVertexInit supplies the conventional isf_vertShaderInit helper when
// a vertex source calls it without defining it. The position and texcoord
// attributes are declared at explicit bind slots if absent.
func injectVertexInit(src string) string {
	if !strings.Contains(src, "isf_vertShaderInit") || vertInitDefRe.MatchString(src) {
		return src
	}

	var b strings.Builder
	if !positionAttrRe.MatchString(src) {
		b.WriteString("layout(location = 0) in vec2 isf_position;\n")
	}
	if !texCoordAttrRe.MatchString(src) {
		b.WriteString("layout(location = 1) in vec2 isf_texCoord;\n")
	}
	if !normCoordOutRe.MatchString(src) {
		b.WriteString("out vec2 " + NormCoordName + ";\n")
	}
	b.WriteString("void isf_vertShaderInit() {\n")
	b.WriteString("\tgl_Position = vec4(isf_position, 0.0, 1.0);\n")
	b.WriteString("\t" + NormCoordName + " = isf_texCoord;\n")
	b.WriteString("}\n")
	return insertAfterVersion(src, b.String())
}

// insertAfterVersion inserts block immediately after the #version line.
// Callers run ensureVersion first, so the directive always exists.
func insertAfterVersion(src, block string) string {
	loc := versionRe.FindStringIndex(src)
	if loc == nil {
		return block + src
	}
	end := loc[1]
	if end < len(src) && src[end] == '\n' {
		end++
	}
	return src[:end] + block + src[end:]
}
