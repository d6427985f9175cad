package renderer

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// MaxDimension bounds the offscreen target on either axis. Requests past
// it fail before any GPU allocation.
const MaxDimension = 16384

// Full-surface quad: clip-space position and texcoord interleaved, drawn
// as a two-triangle strip.
var quadVertices = []float32{
	-1.0, -1.0, 0.0, 0.0,
	1.0, -1.0, 1.0, 0.0,
	-1.0, 1.0, 0.0, 1.0,
	1.0, 1.0, 1.0, 1.0,
}

// Render draws one frame of the scene into an offscreen target and reads
// it back as a row-major RGBA8 buffer with top-left origin. TIME is set
// to timeOffset; TIMEDELTA, FRAMEINDEX and PASSINDEX are zero for a
// single offscreen frame.
//
// Rendering is synchronous: the call returns only after the GPU has
// finished and the pixels are on the host.
func (r *Registry) Render(s *Scene, width, height int, timeOffset float64) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, &RenderingError{Op: "setup", Width: width, Height: height,
			Msg: "dimensions must be positive"}
	}
	if width > MaxDimension || height > MaxDimension {
		return nil, &RenderingError{Op: "setup", Width: width, Height: height,
			Msg: fmt.Sprintf("dimensions exceed the %d limit", MaxDimension)}
	}
	if s == nil || s.empty || s.prog == nil {
		return nil, &RenderingError{Op: "setup", Width: width, Height: height,
			Msg: "scene has no compiled program"}
	}
	if gen := r.mgr.Generation(); s.generation != gen {
		return nil, &RenderingError{Op: "setup", Width: width, Height: height,
			Msg: fmt.Sprintf("stale scene: created against context generation %d, current is %d; rebind to the scenes returned by Reinitialize", s.generation, gen)}
	}
	if !r.mgr.Validate() {
		r.mgr.MakeCurrent()
		if !r.mgr.Validate() {
			return nil, &RenderingError{Op: "setup", Width: width, Height: height,
				Msg: "graphics context is lost"}
		}
	}
	return r.renderLocked(s, width, height, timeOffset)
}

// renderLocked assumes dimensions are validated and the context is
// current.
func (r *Registry) renderLocked(s *Scene, width, height int, timeOffset float64) ([]byte, error) {
	r.ensureQuad()

	var fbo, tex uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)

	defer func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.DeleteTextures(1, &tex)
		gl.DeleteFramebuffers(1, &fbo)
	}()

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return nil, &RenderingError{Op: "target setup", Width: width, Height: height,
			Msg: fmt.Sprintf("offscreen target incomplete (status 0x%04x)", status)}
	}

	s.prog.Use()
	s.prog.SetVec2("RENDERSIZE", float32(width), float32(height))
	s.prog.SetFloat("TIME", float32(timeOffset))
	s.prog.SetFloat("TIMEDELTA", 0)
	s.prog.SetVec4("DATE", 1970, 1, 1, 0)
	s.prog.SetInt("FRAMEINDEX", 0)
	s.prog.SetInt("PASSINDEX", 0)
	for name, v := range s.values {
		s.prog.SetUniform(name, v)
	}

	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)

	gl.Flush()
	gl.Finish()

	pixels := make([]byte, width*height*4)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

	if err := r.mgr.CheckErrors("render"); err != nil {
		return nil, &RenderingError{Op: "draw", Width: width, Height: height, Msg: err.Error()}
	}

	flipRows(pixels, width, height)
	return pixels, nil
}

// flipRows converts GL's bottom-left-origin readback to top-left origin.
func flipRows(pixels []byte, width, height int) {
	stride := width * 4
	tmp := make([]byte, stride)
	for y := 0; y < height/2; y++ {
		top := pixels[y*stride : (y+1)*stride]
		bot := pixels[(height-1-y)*stride : (height-y)*stride]
		copy(tmp, top)
		copy(top, bot)
		copy(bot, tmp)
	}
}

// ensureQuad lazily (re)creates the shared full-surface quad geometry for
// the current context generation.
func (r *Registry) ensureQuad() {
	if r.quadInit && r.quadGen == r.mgr.Generation() {
		return
	}
	gl.GenVertexArrays(1, &r.quadVAO)
	gl.GenBuffers(1, &r.quadVBO)
	gl.BindVertexArray(r.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(2*4))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	r.quadInit = true
	r.quadGen = r.mgr.Generation()
}

// destroyQuad releases the quad geometry when it still belongs to the
// live context.
func (r *Registry) destroyQuad() {
	if !r.quadInit || r.quadGen != r.mgr.Generation() {
		r.quadInit = false
		return
	}
	gl.DeleteBuffers(1, &r.quadVBO)
	gl.DeleteVertexArrays(1, &r.quadVAO)
	r.quadInit = false
}
