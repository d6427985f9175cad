// Package glcontext owns the hidden-window OpenGL context every other
// GPU-touching package renders against.
//
// The manager is the sole point of context creation and destruction. It
// refcounts acquisition, tracks a generation counter that increments on
// every destructive re-initialization, and exposes the baseline state
// reset the renderer relies on. GPU handles created against one
// generation are invalid against the next; the scene registry recreates
// its scenes synchronously inside reinitialization so callers never
// observe the mismatch.
//
// None of this is safe for concurrent use from multiple goroutines, and
// OpenGL binds the context to an OS thread: Initialize locks the calling
// goroutine to its thread, and all subsequent calls against the manager
// must come from that goroutine.
package glcontext

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	glfw "github.com/go-gl/glfw/v3.3/glfw"
)

// Manager owns the GLFW window whose GL context all rendering uses.
type Manager struct {
	mu          sync.Mutex
	window      *glfw.Window
	initialized bool
	invalid     bool
	refcount    int
	generation  uint64
}

// Info is a snapshot of the manager's externally visible state.
type Info struct {
	Initialized bool
	Generation  uint64
	GLVersion   string
}

var (
	shared     *Manager
	sharedOnce sync.Once
)

// Shared returns the process-wide manager. The context itself is not
// created until Initialize is called.
func Shared() *Manager {
	sharedOnce.Do(func() { shared = &Manager{} })
	return shared
}

// gl.Init loads function pointers once per process; they remain valid
// across context recreation on the same driver.
var glInitOnce sync.Once

// Initialize creates the hidden window and GL context. Idempotent: a
// second call on an initialized manager just re-binds the context. A
// failed call leaves the manager invalid; callers must retry explicitly.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized && m.window != nil {
		m.window.MakeContextCurrent()
		return nil
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		m.invalid = true
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}

	win, err := createHiddenWindow()
	if err != nil {
		glfw.Terminate()
		m.invalid = true
		return err
	}

	m.window = win
	m.initialized = true
	m.invalid = false
	log.Printf("GL context initialized (generation %d)", m.generation)
	return nil
}

func createHiddenWindow() (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)

	win, err := glfw.CreateWindow(100, 100, "goisf offscreen", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create offscreen window: %w", err)
	}
	win.MakeContextCurrent()

	var initErr error
	glInitOnce.Do(func() { initErr = gl.Init() })
	if initErr != nil {
		win.Destroy()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}
	return win, nil
}

// Acquire takes a reference on the context. The context is never torn
// down while references are outstanding.
func (m *Manager) Acquire() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return fmt.Errorf("context not initialized; call Initialize first")
	}
	if m.invalid {
		return fmt.Errorf("context is invalid; re-initialize before acquiring")
	}
	m.refcount++
	return nil
}

// Release drops a reference taken with Acquire.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refcount == 0 {
		log.Printf("warning: context Release without matching Acquire")
		return
	}
	m.refcount--
}

// Refcount returns the number of outstanding acquisitions.
func (m *Manager) Refcount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refcount
}

// Generation returns the current context generation. It never decreases.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Validate reports whether the context handle exists and is the active
// context on this thread.
func (m *Manager) Validate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized && m.window != nil && glfw.GetCurrentContext() == m.window
}

// MakeCurrent binds the context on the calling thread.
func (m *Manager) MakeCurrent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.window != nil {
		m.window.MakeContextCurrent()
	}
}

// ResetState restores the baseline GL state a render expects: default
// framebuffer, zero clear color, full-window viewport, blending and depth
// testing off. Resources a render call rebinds anyway (programs, VAOs,
// textures) are deliberately left alone.
func (m *Manager) ResetState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized || m.window == nil {
		return
	}
	m.window.MakeContextCurrent()
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.ClearColor(0, 0, 0, 0)
	w, h := m.window.GetFramebufferSize()
	gl.Viewport(0, 0, int32(w), int32(h))
	gl.Disable(gl.BLEND)
	gl.Disable(gl.DEPTH_TEST)
}

// CheckErrors drains the GL error queue and reports anything found,
// labelled with the operation that just ran.
func (m *Manager) CheckErrors(op string) error {
	var names []string
	for {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			break
		}
		names = append(names, glErrorName(code))
	}
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("gl errors during %s: %v", op, names)
}

func glErrorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	}
	return fmt.Sprintf("0x%04x", code)
}

// Info reports the context's version string and lifecycle state.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := Info{Initialized: m.initialized, Generation: m.generation}
	if m.initialized && m.window != nil {
		m.window.MakeContextCurrent()
		info.GLVersion = gl.GoStr(gl.GetString(gl.VERSION))
	}
	return info
}

// Recreate destroys the live context and creates a fresh one, bumping the
// generation. Every GPU handle created against the old generation is dead
// afterwards; the scene registry is responsible for recreating dependent
// resources before anything renders again. A failed Recreate leaves the
// manager invalid.
func (m *Manager) Recreate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized || m.window == nil {
		return fmt.Errorf("context not initialized; nothing to recreate")
	}

	m.window.Destroy()
	m.window = nil
	m.initialized = false

	win, err := createHiddenWindow()
	if err != nil {
		m.invalid = true
		return fmt.Errorf("context recreation failed: %w", err)
	}

	m.window = win
	m.initialized = true
	m.invalid = false
	m.generation++
	log.Printf("GL context recreated (generation %d)", m.generation)
	return nil
}

// Teardown destroys the context and returns the manager to the
// uninitialized state. It refuses while references are outstanding.
func (m *Manager) Teardown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refcount > 0 {
		return fmt.Errorf("context still acquired (%d outstanding references)", m.refcount)
	}
	if m.window != nil {
		m.window.Destroy()
		m.window = nil
	}
	if m.initialized || m.invalid {
		glfw.Terminate()
	}
	m.initialized = false
	m.invalid = false
	return nil
}
