package renderer

import (
	"os"
	"runtime"
	"testing"

	glcontext "github.com/richinsley/goisf/glcontext"
)

// These tests drive a real GL context and only run when GOISF_GPU_TESTS
// is set, since CI machines rarely have a usable driver.

func TestMain(m *testing.M) {
	runtime.LockOSThread()
	os.Exit(m.Run())
}

func requireGPU(t *testing.T) *glcontext.Manager {
	t.Helper()
	if os.Getenv("GOISF_GPU_TESTS") == "" {
		t.Skip("set GOISF_GPU_TESTS to run tests that need a GL context")
	}
	mgr := glcontext.Shared()
	if err := mgr.Initialize(); err != nil {
		t.Fatalf("context init failed: %v", err)
	}
	return mgr
}

const solidShader = `/*{
	"DESCRIPTION": "solid fill",
	"INPUTS": [
		{"NAME": "fill", "TYPE": "color", "DEFAULT": [1.0, 0.0, 0.0, 1.0]}
	]
}*/
void main() {
	gl_FragColor = fill;
}
`

const coordShader = `/*{
	"DESCRIPTION": "coordinate ramp",
	"INPUTS": []
}*/
void main() {
	gl_FragColor = vec4(isf_FragNormCoord, 0.0, 1.0);
}
`

// near allows for rounding when a float color lands in an 8-bit channel.
func near(got byte, want byte) bool {
	d := int(got) - int(want)
	return d >= -2 && d <= 2
}

func TestRenderSolidFrame(t *testing.T) {
	mgr := requireGPU(t)
	reg, err := NewRegistry(mgr)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	defer reg.Close()

	scene, err := reg.CreateScene(solidShader)
	if err != nil {
		t.Fatalf("CreateScene failed: %v", err)
	}

	const w, h = 64, 48
	pixels, err := reg.Render(scene, w, h, 0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(pixels) != w*h*4 {
		t.Fatalf("got %d bytes, want %d", len(pixels), w*h*4)
	}
	// Default fill is opaque red; spot-check the corners.
	for _, off := range []int{0, (w - 1) * 4, (h - 1) * w * 4, (h*w - 1) * 4} {
		r, g, b, a := pixels[off], pixels[off+1], pixels[off+2], pixels[off+3]
		if !near(r, 255) || !near(g, 0) || !near(b, 0) || !near(a, 255) {
			t.Fatalf("pixel at %d = (%d,%d,%d,%d), want opaque red", off, r, g, b, a)
		}
	}
}

func TestRenderAppliesInputValues(t *testing.T) {
	mgr := requireGPU(t)
	reg, err := NewRegistry(mgr)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	defer reg.Close()

	scene, err := reg.CreateScene(solidShader)
	if err != nil {
		t.Fatalf("CreateScene failed: %v", err)
	}
	if err := scene.SetInput("fill", []float64{0, 1, 0, 1}); err != nil {
		t.Fatalf("SetInput failed: %v", err)
	}

	pixels, err := reg.Render(scene, 8, 8, 0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !near(pixels[0], 0) || !near(pixels[1], 255) || !near(pixels[2], 0) {
		t.Fatalf("pixel = (%d,%d,%d), want green after SetInput", pixels[0], pixels[1], pixels[2])
	}
}

func TestRenderTopLeftOrigin(t *testing.T) {
	mgr := requireGPU(t)
	reg, err := NewRegistry(mgr)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	defer reg.Close()

	scene, err := reg.CreateScene(coordShader)
	if err != nil {
		t.Fatalf("CreateScene failed: %v", err)
	}

	const w, h = 16, 16
	pixels, err := reg.Render(scene, w, h, 0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// The green channel carries the normalized y coordinate; with a
	// top-left origin the first row is the top of the image where y is
	// near 1.
	topGreen := pixels[1]
	botGreen := pixels[(h-1)*w*4+1]
	if topGreen < botGreen {
		t.Fatalf("top row green %d < bottom row green %d: rows not flipped to top-left origin", topGreen, botGreen)
	}
}

func TestRenderRejectsBadShader(t *testing.T) {
	mgr := requireGPU(t)
	reg, err := NewRegistry(mgr)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	defer reg.Close()

	_, err = reg.CreateScene(`/*{"INPUTS": []}*/ void main() { gl_FragColor = banana; }`)
	if err == nil {
		t.Fatal("CreateScene should reject a shader with an undefined symbol")
	}
	if len(reg.Scenes()) != 0 {
		t.Fatalf("failed scene was registered: %d scenes", len(reg.Scenes()))
	}
}

func TestReinitializeRecreatesScenes(t *testing.T) {
	mgr := requireGPU(t)
	reg, err := NewRegistry(mgr)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	defer reg.Close()

	old, err := reg.CreateScene(solidShader)
	if err != nil {
		t.Fatalf("CreateScene failed: %v", err)
	}
	if err := old.SetInput("fill", []float64{0, 0, 1, 1}); err != nil {
		t.Fatalf("SetInput failed: %v", err)
	}
	oldGen := mgr.Generation()

	// Back-to-back recreations shake out second-cycle bookkeeping bugs in
	// the quad and generation tracking, so run several before rendering.
	const rounds = 3
	fresh := old
	for round := 1; round <= rounds; round++ {
		scenes, err := reg.Reinitialize()
		if err != nil {
			t.Fatalf("Reinitialize round %d failed: %v", round, err)
		}
		if got := mgr.Generation(); got != oldGen+uint64(round) {
			t.Fatalf("generation = %d after round %d, want %d", got, round, oldGen+uint64(round))
		}
		if len(scenes) != 1 {
			t.Fatalf("round %d returned %d scenes, want 1", round, len(scenes))
		}
		if scenes[0] == fresh {
			t.Fatalf("round %d returned the previous scene identity", round)
		}
		fresh = scenes[0]
		if fresh.IsEmpty() {
			t.Fatalf("round %d recreated the scene as a fallback", round)
		}
	}

	// Input values survive the recreation.
	pixels, err := reg.Render(fresh, 8, 8, 0)
	if err != nil {
		t.Fatalf("Render after Reinitialize failed: %v", err)
	}
	if !near(pixels[0], 0) || !near(pixels[1], 0) || !near(pixels[2], 255) {
		t.Fatalf("pixel = (%d,%d,%d), want the blue set before Reinitialize", pixels[0], pixels[1], pixels[2])
	}

	// The old handle is refused rather than rendered against the new
	// context.
	if _, err := reg.Render(old, 8, 8, 0); err == nil {
		t.Fatal("rendering through a pre-Reinitialize scene should fail")
	}
}

func TestReinitializeReplacesBrokenSceneWithFallback(t *testing.T) {
	mgr := requireGPU(t)
	reg, err := NewRegistry(mgr)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	defer reg.Close()

	good, err := reg.CreateScene(solidShader)
	if err != nil {
		t.Fatalf("CreateScene failed: %v", err)
	}
	// Corrupt the captured source so recreation fails for this scene only.
	good.source = `/*{"INPUTS": []}*/ void main() { gl_FragColor = banana; }`

	scenes, err := reg.Reinitialize()
	if err != nil {
		t.Fatalf("Reinitialize failed: %v", err)
	}
	if len(scenes) != 1 || !scenes[0].IsEmpty() {
		t.Fatalf("want one fallback scene, got %+v", scenes)
	}
	if _, err := reg.Render(scenes[0], 8, 8, 0); err == nil {
		t.Fatal("a fallback scene should not render")
	}
}
