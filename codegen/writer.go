package codegen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer persists artifacts under a single generation root. It refuses to
// write outside that root and refuses to overwrite files that do not carry
// the generated-file header, so hand-written code is never clobbered.
type Writer struct {
	root string
}

// NewWriter roots a writer at dir (typically "gen").
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("codegen: writer root is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("codegen: resolving writer root: %w", err)
	}
	return &Writer{root: abs}, nil
}

// Write persists one artifact, creating parent directories as needed.
func (w *Writer) Write(artifact Artifact) error {
	target, err := w.resolve(artifact.Path)
	if err != nil {
		return err
	}
	if err := w.checkOverwrite(target); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("codegen: creating %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, artifact.Source, 0o644); err != nil {
		return fmt.Errorf("codegen: writing %s: %w", artifact.Path, err)
	}
	return nil
}

// WriteAll persists every artifact, stopping at the first failure.
func (w *Writer) WriteAll(artifacts []Artifact) error {
	for _, artifact := range artifacts {
		if err := w.Write(artifact); err != nil {
			return err
		}
	}
	return nil
}

// resolve joins the artifact path onto the root and rejects traversal out
// of it.
func (w *Writer) resolve(rel string) (string, error) {
	target := filepath.Join(w.root, filepath.FromSlash(rel))
	if target != w.root && !strings.HasPrefix(target, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("codegen: path %q escapes generation root", rel)
	}
	return target, nil
}

// checkOverwrite allows writing over missing files and previously generated
// files only.
func (w *Writer) checkOverwrite(target string) error {
	existing, err := os.ReadFile(target)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("codegen: inspecting %s: %w", target, err)
	}
	if !bytes.Contains(existing, []byte(Header)) {
		return fmt.Errorf("codegen: refusing to overwrite %s: not a generated file", target)
	}
	return nil
}
