// Package validate checks ISF shaders without acquiring a GPU context.
//
// Sources run through the same preprocessing pipeline the renderer uses
// and are then handed to the ANGLE-based shader translator, whose parser
// reports the same class of syntax and semantic errors a driver would.
// This is the supported way to lint a shader from tooling or tests where
// no graphics context exists.
package validate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	gst "github.com/richinsley/goshadertranslator"

	metadata "github.com/richinsley/goisf/metadata"
	preprocess "github.com/richinsley/goisf/preprocess"
	program "github.com/richinsley/goisf/program"
)

var (
	translator     *gst.ShaderTranslator
	translatorOnce sync.Once
	translatorErr  error
)

func getTranslator() (*gst.ShaderTranslator, error) {
	translatorOnce.Do(func() {
		translator, translatorErr = gst.NewShaderTranslator(context.Background())
	})
	return translator, translatorErr
}

// Source validates a complete ISF shader with the default vertex stage.
// It returns a metadata ParseError for a bad header and a
// program.CompilationError for GLSL the translator rejects.
func Source(source string) error {
	return SourceWithVertex(source, "")
}

// SourceWithVertex validates an ISF shader together with a custom vertex
// source.
func SourceWithVertex(source, vertexSource string) error {
	meta, body, err := metadata.Parse(source)
	if err != nil {
		return err
	}

	pipe := preprocess.New(meta.Inputs)
	vs := vertexSource
	if vs == "" {
		vs = preprocess.DefaultVertexSource
	}
	if err := translate(pipe.Vertex(vs), "vertex"); err != nil {
		return err
	}
	return translate(pipe.Fragment(body), "fragment")
}

func translate(src, stage string) error {
	tr, err := getTranslator()
	if err != nil {
		return fmt.Errorf("shader translator unavailable: %w", err)
	}
	// The translator front end parses the ES dialect; swap the desktop
	// directive for its ES equivalent before handing the source over.
	if _, err := tr.TranslateShader(toESSL(src), stage, gst.ShaderSpecWebGL2, gst.OutputFormatGLSL330); err != nil {
		return &program.CompilationError{Stage: stage, Log: err.Error()}
	}
	return nil
}

func toESSL(src string) string {
	return strings.Replace(src, "#version 330",
		"#version 300 es\nprecision highp float;\nprecision highp int;", 1)
}
