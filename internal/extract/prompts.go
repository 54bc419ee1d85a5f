package extract

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tyler-sommer/stick"
)

//go:embed prompts/*.twig
var promptFS embed.FS

// Prompts renders the extraction prompt templates. Templates are twig
// files loaded once at construction; rendering is pure.
type Prompts struct {
	env       *stick.Env
	templates map[string]string
}

// LoadPrompts loads every *.twig file embedded under prompts/.
func LoadPrompts() (*Prompts, error) {
	p := &Prompts{
		env:       stick.New(nil),
		templates: make(map[string]string),
	}
	err := fs.WalkDir(promptFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".twig") {
			return nil
		}
		content, readErr := fs.ReadFile(promptFS, path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".twig")
		p.templates[name] = string(content)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Render executes the named template with the supplied variables.
func (p *Prompts) Render(name string, vars map[string]stick.Value) (string, error) {
	tpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}
	var out strings.Builder
	if err := p.env.Execute(tpl, &out, vars); err != nil {
		return "", fmt.Errorf("execute %q: %w", name, err)
	}
	return out.String(), nil
}
