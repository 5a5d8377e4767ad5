package codegen

const modelTemplate = `{{.Header}}

package model
{{if or .NeedsTime .NeedsJSON}}
import (
{{- if .NeedsJSON}}
	"encoding/json"
{{- end}}
{{- if .NeedsTime}}
	"time"
{{- end}}
)
{{end}}
// {{.TypeName}} mirrors one record of the {{.Entity}} entity.
type {{.TypeName}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}} ` + "`" + `json:"{{.Column}}"` + "`" + `
{{- end}}
}
`

const controllerTemplate = `{{.Header}}

package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"{{.Module}}/dao"
)

// {{.TypeName}}Controller serves bounded, filtered reads of the {{.Entity}}
// entity.
type {{.TypeName}}Controller struct {
	dao dao.DAO
}

// New{{.TypeName}}Controller wraps a data access handle.
func New{{.TypeName}}Controller(d dao.DAO) *{{.TypeName}}Controller {
	return &{{.TypeName}}Controller{dao: d}
}

// Query handles GET requests carrying per-field filter parameters.
func (c *{{.TypeName}}Controller) Query(w http.ResponseWriter, r *http.Request) {
	q := dao.Query{Entity: "{{.Entity}}"}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Limit = n
		}
	}
{{- range .Fields}}
{{- if .Filter}}
	if v := r.URL.Query().Get("{{.Column}}"); v != "" {
		q.Filters = append(q.Filters, dao.Filter{Field: "{{.Column}}", Op: dao.OpEq, Value: v})
	}
{{- end}}
{{- end}}

	rows, err := c.dao.Query(r.Context(), q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}
`

const toolTemplate = `{{.Header}}

package tools

import (
	"context"

	"{{.Module}}/dao"
	"{{.Module}}/schema"
	"{{.Module}}/tool"
)

// Register{{.TypeName}}Tool registers the bounded query tool for the
// {{.Entity}} entity.
func Register{{.TypeName}}Tool(registry *tool.Registry, d dao.DAO) error {
	desc := tool.Descriptor{
		Name:        "query_{{.Entity}}",
		Description: "Query the {{.Entity}} entity with optional per-field filters.",
		Parameters: []tool.ParameterSpec{
{{- range .Fields}}
{{- if .Filter}}
			{Name: "{{.Column}}", Type: schema.Type("{{.Semantic}}"), Description: "Filter on {{.Column}}."},
{{- end}}
{{- end}}
			{Name: "limit", Type: schema.TypeInteger, Default: int64(100), Description: "Maximum rows returned."},
		},
	}
	handler := tool.HandlerFunc(func(ctx context.Context, args map[string]any) (any, error) {
		q := dao.Query{Entity: "{{.Entity}}"}
		for name, value := range args {
			if name == "limit" {
				if n, ok := value.(int64); ok {
					q.Limit = int(n)
				}
				continue
			}
			q.Filters = append(q.Filters, dao.Filter{Field: name, Op: dao.OpEq, Value: value})
		}
		return d.Query(ctx, q)
	})
	_, err := registry.Register(desc, handler)
	return err
}
`
