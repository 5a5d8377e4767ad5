package util

import (
	"bytes"
	"strings"
	"text/template"
)

// promptFuncs are the helpers available inside system prompt templates.
var promptFuncs = template.FuncMap{
	"default": func(fallback any, val any) any {
		if val == nil || val == "" {
			return fallback
		}
		return val
	},
	"upper": strings.ToUpper,
}

// RenderPrompt expands template variables in an agent system prompt. Prompts
// without template markers pass through untouched.
func RenderPrompt(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(promptFuncs).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", err
	}
	return buf.String(), nil
}
