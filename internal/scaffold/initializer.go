// Package scaffold writes a starter gottwood.yml.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/14tweny/Gottwood-Review-sub000/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Params fill in the starter configuration.
type Params struct {
	OrgID         string
	OrgName       string
	CurrentPeriod string
}

// Initialize writes the starter configuration to path.
// If force is true, an existing file is replaced.
func Initialize(path string, p Params, force bool) error {
	if force {
		if err := handleForce(path); err != nil {
			return err
		}
	}

	content, err := render(p)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return validateCreatedFile(path)
}

// handleForce removes an existing configuration if --force was specified
func handleForce(path string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("⚠️  Removing existing %s...\n", path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func render(p Params) ([]byte, error) {
	raw, err := templatesFS.ReadFile("templates/gottwood.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read gottwood.yml template: %w", err)
	}
	tmpl, err := template.New("gottwood.yml").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse gottwood.yml template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("failed to render gottwood.yml: %w", err)
	}
	return buf.Bytes(), nil
}

// validateCreatedFile checks the written file parses and passes config validation.
func validateCreatedFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", path, err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return fmt.Errorf("created %s is not valid YAML: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("created %s is not a valid configuration: %w", path, err)
	}
	return nil
}
