package renderer

import (
	"log"

	glcontext "github.com/richinsley/goisf/glcontext"
	metadata "github.com/richinsley/goisf/metadata"
	preprocess "github.com/richinsley/goisf/preprocess"
	program "github.com/richinsley/goisf/program"
	value "github.com/richinsley/goisf/value"
)

// Registry owns every live Scene registered against one context manager
// and recreates them transactionally when the context is reinitialized.
//
// All registry methods that touch the GPU are serialized behind one lock
// and must run on the goroutine that initialized the context.
type Registry struct {
	mgr    *glcontext.Manager
	scenes []*Scene

	quadVAO  uint32
	quadVBO  uint32
	quadGen  uint64
	quadInit bool
}

// NewRegistry binds a registry to a context manager and takes a context
// reference for the registry's lifetime.
func NewRegistry(mgr *glcontext.Manager) (*Registry, error) {
	if err := mgr.Acquire(); err != nil {
		return nil, err
	}
	return &Registry{mgr: mgr}, nil
}

// Manager returns the context manager the registry renders against.
func (r *Registry) Manager() *glcontext.Manager { return r.mgr }

// CreateScene parses, preprocesses and compiles an ISF shader, renders an
// eager 1x1 validation frame, and registers the resulting scene.
func (r *Registry) CreateScene(source string) (*Scene, error) {
	return r.CreateSceneWithVertex(source, "")
}

// CreateSceneWithVertex is CreateScene with a custom vertex source
// overriding the default passthrough.
func (r *Registry) CreateSceneWithVertex(source, vertexSource string) (*Scene, error) {
	s, err := r.buildScene(source, vertexSource, nil)
	if err != nil {
		return nil, err
	}
	r.scenes = append(r.scenes, s)
	return s, nil
}

// buildScene does the full parse → preprocess → compile → validate chain.
// restored, when non-nil, carries input values captured from a previous
// generation of the scene.
func (r *Registry) buildScene(source, vertexSource string, restored map[string]value.TypedValue) (*Scene, error) {
	meta, body, err := metadata.Parse(source)
	if err != nil {
		return nil, err
	}
	meta.VertexSource = vertexSource

	s := &Scene{
		meta:           meta,
		source:         source,
		vertexOverride: vertexSource,
		fragBody:       body,
		values:         make(map[string]value.TypedValue),
	}
	for _, in := range meta.Inputs {
		if !in.Default.IsNull() {
			s.values[in.Name] = in.Default
		}
	}
	if restored != nil {
		for name, v := range restored {
			s.values[name] = v
		}
	}

	if err := r.compileScene(s); err != nil {
		return nil, err
	}

	// Surface driver rejections now rather than on the first real frame.
	if _, err := r.renderLocked(s, 1, 1, 0); err != nil {
		s.prog.Cleanup()
		s.prog = nil
		return nil, err
	}
	return s, nil
}

func (r *Registry) compileScene(s *Scene) error {
	if !r.mgr.Validate() {
		r.mgr.MakeCurrent()
	}

	pipe := preprocess.New(s.meta.Inputs)
	vertexSrc := s.vertexOverride
	if vertexSrc == "" {
		vertexSrc = preprocess.DefaultVertexSource
	}
	vs := pipe.Vertex(vertexSrc)
	fs := pipe.Fragment(s.fragBody)

	prog, err := program.CompileAndLink(vs, fs)
	if err != nil {
		return err
	}
	prog.Use()
	prog.ResolveUniforms(uniformNames(s.meta))

	s.prog = prog
	s.generation = r.mgr.Generation()
	return nil
}

// uniformNames lists every slot to pre-resolve: the standard set plus all
// declared inputs, whether or not the driver reports them active.
func uniformNames(meta *metadata.ShaderMetadata) []string {
	names := make([]string, 0, len(preprocess.StandardUniforms)+len(meta.Inputs))
	for _, u := range preprocess.StandardUniforms {
		names = append(names, u.Name)
	}
	for _, in := range meta.Inputs {
		names = append(names, in.Name)
	}
	return names
}

// Scenes returns the registered scenes in registration order.
func (r *Registry) Scenes() []*Scene {
	out := make([]*Scene, len(r.scenes))
	copy(out, r.scenes)
	return out
}

// DestroyScene releases a scene's GPU resources and removes it from the
// registry.
func (r *Registry) DestroyScene(s *Scene) {
	for i, cur := range r.scenes {
		if cur == s {
			r.scenes = append(r.scenes[:i], r.scenes[i+1:]...)
			break
		}
	}
	// A handle from an older generation belongs to a context that no
	// longer exists; deleting it against the live context would free an
	// unrelated program.
	if s.prog != nil && s.generation == r.mgr.Generation() {
		s.prog.Cleanup()
	}
	s.prog = nil
}

// Reinitialize captures the declarative state of every registered scene,
// destroys and recreates the context, then rebuilds each scene against
// the new generation. The registry contents are replaced atomically and
// the new scenes are returned in registration order.
//
// A scene that fails to recreate is replaced by an empty fallback and the
// failure is logged; one bad shader must not abort recovery of the rest.
// A failed context recreation is fatal to the call and leaves the manager
// invalid.
func (r *Registry) Reinitialize() ([]*Scene, error) {
	type sceneState struct {
		source         string
		vertexOverride string
		values         map[string]value.TypedValue
	}
	states := make([]sceneState, len(r.scenes))
	for i, s := range r.scenes {
		states[i] = sceneState{
			source:         s.source,
			vertexOverride: s.vertexOverride,
			values:         s.CurrentInputs(),
		}
	}

	// The old programs and quad die with the context; there is nothing to
	// delete against a context that no longer exists.
	r.quadInit = false

	if err := r.mgr.Recreate(); err != nil {
		return nil, err
	}
	r.mgr.ResetState()

	newScenes := make([]*Scene, 0, len(states))
	for i, st := range states {
		s, err := r.buildScene(st.source, st.vertexOverride, st.values)
		if err != nil {
			log.Printf("warning: failed to recreate scene %d: %v", i, err)
			s = &Scene{
				values:     make(map[string]value.TypedValue),
				generation: r.mgr.Generation(),
				empty:      true,
			}
		}
		newScenes = append(newScenes, s)
	}
	r.scenes = newScenes

	return r.Scenes(), nil
}

// Close releases every scene, the shared quad geometry and the registry's
// context reference. The registry must not be used afterwards.
func (r *Registry) Close() error {
	if !r.mgr.Validate() {
		r.mgr.MakeCurrent()
	}
	current := r.mgr.Generation()
	for _, s := range r.scenes {
		if s.prog != nil && s.generation == current {
			s.prog.Cleanup()
		}
		s.prog = nil
	}
	r.scenes = nil
	r.destroyQuad()
	r.mgr.Release()
	return nil
}
