package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"path"
	"text/template"

	"github.com/hupe1980/querymesh/internal/util"
	"github.com/hupe1980/querymesh/schema"
)

// Engine renders source artifacts from descriptors. Templates are parsed
// once at construction.
type Engine struct {
	templates map[Kind]*template.Template
	module    string
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// ModulePath is the import path prefix used in generated controller and
	// tool files.
	ModulePath string
}

// NewEngine parses the built-in templates.
func NewEngine(optFns ...func(o *EngineOptions)) (*Engine, error) {
	opts := EngineOptions{ModulePath: "github.com/hupe1980/querymesh"}
	for _, fn := range optFns {
		fn(&opts)
	}

	sources := map[Kind]string{
		KindModel:      modelTemplate,
		KindController: controllerTemplate,
		KindTool:       toolTemplate,
	}
	templates := make(map[Kind]*template.Template, len(sources))
	for kind, src := range sources {
		tmpl, err := template.New(string(kind)).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("codegen: parsing %s template: %w", kind, err)
		}
		templates[kind] = tmpl
	}
	return &Engine{templates: templates, module: opts.ModulePath}, nil
}

type fieldData struct {
	GoName   string
	Column   string
	GoType   string
	Key      bool
	Filter   bool
	Semantic schema.Type
}

type templateData struct {
	Header    string
	Module    string
	Entity    string
	TypeName  string
	Fields    []fieldData
	KeyFields []fieldData
	NeedsTime bool
	NeedsJSON bool
}

// Render produces one artifact for a descriptor. A descriptor with no
// fields cannot be rendered and yields a *TemplateError.
func (e *Engine) Render(desc schema.Descriptor, kind Kind) (Artifact, error) {
	tmpl, ok := e.templates[kind]
	if !ok {
		return Artifact{}, &TemplateError{Entity: desc.Entity, Kind: kind, Reason: "unknown artifact kind"}
	}
	if err := desc.Validate(); err != nil {
		return Artifact{}, &TemplateError{Entity: desc.Entity, Kind: kind, Reason: err.Error()}
	}
	if len(desc.Fields) == 0 {
		return Artifact{}, &TemplateError{Entity: desc.Entity, Kind: kind, Reason: "descriptor has no fields"}
	}

	data := templateData{
		Header:   Header,
		Module:   e.module,
		Entity:   desc.Entity,
		TypeName: util.SnakeToCamel(desc.Entity),
	}
	for _, f := range desc.Fields {
		fd := fieldData{
			GoName:   util.SnakeToCamel(f.Name),
			Column:   f.Name,
			GoType:   goType(f),
			Key:      f.Key,
			Filter:   f.Type != schema.TypeJSON,
			Semantic: f.Type,
		}
		data.Fields = append(data.Fields, fd)
		if f.Key {
			data.KeyFields = append(data.KeyFields, fd)
		}
		switch f.Type {
		case schema.TypeDatetime:
			data.NeedsTime = true
		case schema.TypeJSON:
			data.NeedsJSON = true
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Artifact{}, &TemplateError{Entity: desc.Entity, Kind: kind, Reason: err.Error()}
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return Artifact{}, &TemplateError{Entity: desc.Entity, Kind: kind, Reason: fmt.Sprintf("formatting: %v", err)}
	}
	return Artifact{Path: artifactPath(desc.Entity, kind), Source: src}, nil
}

// RenderAll renders every requested kind for every descriptor. One broken
// descriptor does not block the others: failures are collected per entity
// and the successful artifacts are still returned.
func (e *Engine) RenderAll(descs []schema.Descriptor, kinds ...Kind) ([]Artifact, map[string]error) {
	if len(kinds) == 0 {
		kinds = []Kind{KindModel, KindController, KindTool}
	}
	var artifacts []Artifact
	failures := make(map[string]error)
	for _, desc := range descs {
		for _, kind := range kinds {
			artifact, err := e.Render(desc, kind)
			if err != nil {
				failures[desc.Entity] = err
				break
			}
			artifacts = append(artifacts, artifact)
		}
	}
	if len(failures) == 0 {
		failures = nil
	}
	return artifacts, failures
}

func artifactPath(entity string, kind Kind) string {
	switch kind {
	case KindController:
		return path.Join("controller", entity+"_controller.go")
	case KindTool:
		return path.Join("tools", entity+"_tool.go")
	default:
		return path.Join("model", entity+".go")
	}
}
