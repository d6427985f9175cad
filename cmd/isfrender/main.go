package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	glcontext "github.com/richinsley/goisf/glcontext"
	renderer "github.com/richinsley/goisf/renderer"
)

func init() {
	runtime.LockOSThread()
}

type inputFlags []string

func (f *inputFlags) String() string { return strings.Join(*f, ",") }

func (f *inputFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

// parseValue turns a flag string into a host value Coerce understands:
// bools, integers, floats, or a comma-separated numeric tuple.
func parseValue(s string) (interface{}, error) {
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		nums := make([]float64, len(parts))
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("component %d of %q is not a number", i, s)
			}
			nums[i] = f
		}
		return nums, nil
	}
	// Numbers before bools: ParseBool claims "1"/"0"/"t"/"f", which would
	// strand plain numeric values as booleans.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("cannot parse %q as a shader input value", s)
}

func main() {
	var shaderPath = flag.String("shader", "", "path to an ISF fragment shader file")
	var vertexPath = flag.String("vertex", "", "optional path to a custom vertex shader")
	var width = flag.Int("width", 1280, "output width in pixels")
	var height = flag.Int("height", 720, "output height in pixels")
	var timeOffset = flag.Float64("time", 0.0, "value for the TIME uniform")
	var outputFile = flag.String("output", "", "write the raw RGBA8 pixel buffer to this path")
	var inputs inputFlags
	flag.Var(&inputs, "set", "shader input assignment name=value (repeatable)")
	flag.Parse()

	if *shaderPath == "" {
		fmt.Println("ISF offscreen renderer")
		flag.PrintDefaults()
		os.Exit(2)
	}

	source, err := os.ReadFile(*shaderPath)
	if err != nil {
		log.Fatalf("Failed to read shader: %v", err)
	}
	vertexSource := ""
	if *vertexPath != "" {
		vs, err := os.ReadFile(*vertexPath)
		if err != nil {
			log.Fatalf("Failed to read vertex shader: %v", err)
		}
		vertexSource = string(vs)
	}

	mgr := glcontext.Shared()
	if err := mgr.Initialize(); err != nil {
		log.Fatalf("Failed to initialize GL context: %v", err)
	}
	defer mgr.Teardown()

	reg, err := renderer.NewRegistry(mgr)
	if err != nil {
		log.Fatalf("Failed to create scene registry: %v", err)
	}
	defer reg.Close()

	scene, err := reg.CreateSceneWithVertex(string(source), vertexSource)
	if err != nil {
		log.Fatalf("Failed to load shader: %v", err)
	}
	log.Printf("Loaded shader with %d declared inputs", len(scene.Metadata().Inputs))

	for _, assignment := range inputs {
		name, raw, ok := strings.Cut(assignment, "=")
		if !ok {
			log.Fatalf("Bad -set %q: expected name=value", assignment)
		}
		v, err := parseValue(raw)
		if err != nil {
			log.Fatalf("Bad -set %q: %v", assignment, err)
		}
		if err := scene.SetInput(name, v); err != nil {
			log.Fatalf("Failed to set input: %v", err)
		}
	}

	pixels, err := reg.Render(scene, *width, *height, *timeOffset)
	if err != nil {
		log.Fatalf("Render failed: %v", err)
	}
	log.Printf("Rendered %dx%d frame (%d bytes)", *width, *height, len(pixels))

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, pixels, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		log.Printf("Wrote raw RGBA8 pixels to %s", *outputFile)
	}
}
