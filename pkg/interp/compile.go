// Package interp is the public surface of the compiler and the runtime
// interpreter: it compiles .vel sources into component definitions and
// evaluates their lowered form on the reactive property graph.
package interp

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vellum-ui/vellum/pkg/diag"
	"github.com/vellum-ui/vellum/pkg/llr"
	"github.com/vellum-ui/vellum/pkg/objtree"
	"github.com/vellum-ui/vellum/pkg/parse"
	"github.com/vellum-ui/vellum/pkg/passes"
	"github.com/vellum-ui/vellum/pkg/registry"
)

// FileLoader resolves an import path to file contents. It is the only point
// where compilation may suspend; hosts can use it to interleave their own
// I/O.
type FileLoader func(ctx context.Context, path string) ([]byte, error)

// ComponentsToGenerate selects which exported components of a document become
// definitions.
type ComponentsToGenerate int

const (
	// AllExported generates a definition per exported component.
	AllExported ComponentsToGenerate = iota
	// LastComponentOnly generates only the last declared component, exporting
	// it if the source did not.
	LastComponentOnly
	// ComponentWithName generates only the component named by
	// CompileConfig.ComponentName.
	ComponentWithName
)

// CompileConfig configures a Compiler. The zero value compiles standalone
// sources with no imports.
type CompileConfig struct {
	// IncludePaths are searched, in order, for imports not found relative to
	// the importing file.
	IncludePaths []string
	// LibraryPaths maps logical library names to directories; imports of the
	// form "@name/file.vel" resolve against them.
	LibraryPaths map[string]string
	// Style selects a widget style: "@name/file.vel" tries
	// "<dir>/<style>/file.vel" before "<dir>/file.vel".
	Style string

	ComponentsToGenerate ComponentsToGenerate
	// ComponentName names the component for ComponentWithName.
	ComponentName string

	// FileLoader, when set, replaces filesystem access for imports.
	FileLoader FileLoader

	// Platform creates window adapters for instances. Nil selects the
	// headless platform.
	Platform Platform
}

// Compiler compiles documents. The builtin type registry is constructed once
// and shared across compilations; a Compiler must not be used from two
// goroutines at once.
type Compiler struct {
	cfg CompileConfig
	reg *registry.Registry
}

// NewCompiler returns a compiler with the given configuration.
func NewCompiler(cfg CompileConfig) *Compiler {
	return &Compiler{cfg: cfg, reg: registry.New()}
}

// CompilationResult carries everything a compilation produced: the complete
// diagnostics in source order, and a definition per requested component that
// compiled without errors.
type CompilationResult struct {
	Diagnostics []*diag.Diag
	Components  map[string]*ComponentDefinition
}

// HasError reports whether any diagnostic is error-level.
func (r *CompilationResult) HasError() bool {
	for _, d := range r.Diagnostics {
		if d.Level == diag.Error {
			return true
		}
	}
	return false
}

// Component returns the definition with the given name, or nil.
func (r *CompilationResult) Component(name string) *ComponentDefinition {
	return r.Components[name]
}

// Compile compiles one source document. User-level problems become
// diagnostics in the result; the returned error is reserved for host-level
// failures (context cancellation). Components with error diagnostics yield no
// definition, but sibling components and all diagnostics are still reported.
func (c *Compiler) Compile(ctx context.Context, source parse.Source) (*CompilationResult, error) {
	sink := &diag.Sink{}
	ld := &loader{c: c, ctx: ctx, sink: sink,
		building: make(map[string]bool),
		cache:    make(map[string]*objtree.Document),
	}

	adjust := func(doc *objtree.Document) {
		if c.cfg.ComponentsToGenerate == LastComponentOnly {
			if last := doc.LastComponent(); last != nil {
				last.Exported = true
			}
		}
	}
	doc := ld.buildDocument(source, adjust)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &CompilationResult{
		Diagnostics: sink.All(),
		Components:  make(map[string]*ComponentDefinition),
	}
	failed, docBroken := attributeErrors(doc, res.Diagnostics)
	if docBroken {
		return res, nil
	}
	for _, comp := range doc.Components {
		if failed[comp] {
			comp.Exported = false
		}
	}

	unit := llr.LowerDocument(doc)
	for _, pc := range unit.Components {
		if !c.wantComponent(doc, pc.Name) {
			continue
		}
		res.Components[pc.Name] = &ComponentDefinition{
			name:     pc.Name,
			unit:     unit,
			comp:     pc,
			platform: c.cfg.Platform,
		}
	}
	return res, nil
}

func (c *Compiler) wantComponent(doc *objtree.Document, name string) bool {
	switch c.cfg.ComponentsToGenerate {
	case LastComponentOnly:
		last := doc.LastComponent()
		return last != nil && last.Name == name
	case ComponentWithName:
		return name == c.cfg.ComponentName
	default:
		return true
	}
}

// attributeErrors maps error diagnostics of the main document onto the
// components whose source span contains them. Errors outside every exported
// component (parse errors, broken globals, broken shared components) fail the
// whole document.
func attributeErrors(doc *objtree.Document, diags []*diag.Diag) (failed map[*objtree.Component]bool, docBroken bool) {
	failed = make(map[*objtree.Component]bool)
	for _, d := range diags {
		if d.Level != diag.Error || d.Context.Name != doc.Source.Name {
			continue
		}
		owner := componentAt(doc, d.Context.From)
		if owner == nil || owner.Global || !owner.Exported {
			return failed, true
		}
		failed[owner] = true
	}
	return failed, false
}

func componentAt(doc *objtree.Document, pos int) *objtree.Component {
	for _, comp := range doc.Components {
		r := comp.Root.Range()
		if pos >= r.From && pos < r.To {
			return comp
		}
	}
	return nil
}

// loader resolves and builds imported documents, sharing one sink and one
// registry with the main compilation.
type loader struct {
	c    *Compiler
	ctx  context.Context
	sink *diag.Sink

	building map[string]bool
	cache    map[string]*objtree.Document
}

// buildDocument parses, builds and runs the passes pipeline on one source,
// recursing into its imports first. adjust, when set, runs between building
// and the passes.
func (ld *loader) buildDocument(src parse.Source, adjust func(*objtree.Document)) *objtree.Document {
	tree, err := parse.Parse(src)
	for _, pe := range parse.UnpackErrors(err) {
		ld.sink.Add(&diag.Diag{Level: diag.Error, Message: pe.Message, Context: pe.Context})
	}

	extern := make(map[string]*objtree.Component)
	for _, imp := range tree.Root.Imports {
		if imp.Path == nil {
			continue
		}
		idoc := ld.load(imp.Path.Value, src, imp)
		if idoc == nil {
			// The load failure is already diagnosed; a nil entry keeps the
			// builder from reporting the same names as unknown.
			for _, id := range imp.Names {
				extern[id.Name] = nil
			}
			continue
		}
		exported := make(map[string]*objtree.Component)
		for _, comp := range idoc.ExportedComponents() {
			exported[comp.Name] = comp
		}
		for _, id := range imp.Names {
			if comp, ok := exported[id.Name]; ok {
				extern[id.Name] = comp
			} else {
				ld.sink.Errorf(src.Name, src.Code, id,
					"%q is not exported by %q", id.Name, imp.Path.Value)
				extern[id.Name] = nil
			}
		}
	}

	doc := objtree.Build(tree, ld.c.reg, extern, ld.sink)
	if adjust != nil {
		adjust(doc)
	}
	passes.Run(doc, ld.sink)
	return doc
}

func (ld *loader) load(path string, importer parse.Source, r diag.Ranger) *objtree.Document {
	resolved, data, err := ld.readFile(path, importer.Name)
	if err != nil {
		ld.sink.Errorf(importer.Name, importer.Code, r, "cannot load import %q: %v", path, err)
		return nil
	}
	if ld.building[resolved] {
		ld.sink.Errorf(importer.Name, importer.Code, r, "import cycle through %q", path)
		return nil
	}
	if doc, ok := ld.cache[resolved]; ok {
		return doc
	}
	ld.building[resolved] = true
	doc := ld.buildDocument(parse.Source{Name: resolved, Code: string(data)}, nil)
	delete(ld.building, resolved)
	ld.cache[resolved] = doc
	return doc
}

// readFile resolves an import path: the custom loader if one is configured,
// "@library/..." paths against the library table (style subdirectory first),
// then relative to the importer, then the include paths.
func (ld *loader) readFile(path, importerName string) (resolved string, data []byte, err error) {
	if err := ld.ctx.Err(); err != nil {
		return "", nil, err
	}
	if ld.c.cfg.FileLoader != nil {
		data, err := ld.c.cfg.FileLoader(ld.ctx, path)
		return path, data, err
	}
	if lib, rest, ok := splitLibraryPath(path); ok {
		dir, found := ld.c.cfg.LibraryPaths[lib]
		if !found {
			return "", nil, &os.PathError{Op: "resolve", Path: path, Err: os.ErrNotExist}
		}
		if style := ld.c.cfg.Style; style != "" {
			if data, err := os.ReadFile(filepath.Join(dir, style, rest)); err == nil {
				return filepath.Join(dir, style, rest), data, nil
			}
		}
		full := filepath.Join(dir, rest)
		data, err := os.ReadFile(full)
		return full, data, err
	}
	candidates := []string{filepath.Join(filepath.Dir(importerName), path)}
	for _, dir := range ld.c.cfg.IncludePaths {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	for _, full := range candidates {
		if data, err := os.ReadFile(full); err == nil {
			return full, data, nil
		}
	}
	return "", nil, &os.PathError{Op: "resolve", Path: path, Err: os.ErrNotExist}
}

func splitLibraryPath(path string) (lib, rest string, ok bool) {
	if !strings.HasPrefix(path, "@") {
		return "", "", false
	}
	lib, rest, found := strings.Cut(path[1:], "/")
	if !found {
		return "", "", false
	}
	return lib, rest, true
}
