// Package catalog loads the document template catalog from YAML and seeds it
// into the template registry.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

//go:embed templates.yaml
var defaultCatalog []byte

type Document struct {
	Templates []Entry `yaml:"templates"`
}

type Entry struct {
	Code        string      `yaml:"code"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Tracks      []string    `yaml:"tracks"`
	RiskTier    string      `yaml:"risk_tier"`
	Required    bool        `yaml:"required"`
	Order       int         `yaml:"order"`
	Fields      []FieldSpec `yaml:"fields"`
	Files       FileSpec    `yaml:"files"`
}

type FieldSpec struct {
	Key         string   `yaml:"key"`
	Label       string   `yaml:"label"`
	Kind        string   `yaml:"kind"`
	Required    bool     `yaml:"required"`
	Placeholder string   `yaml:"placeholder"`
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	MinLength   *int     `yaml:"min_length"`
	MaxLength   *int     `yaml:"max_length"`
	Pattern     string   `yaml:"pattern"`
	Options     []string `yaml:"options"`
}

type FileSpec struct {
	AllowedMIMETypes []string `yaml:"allowed_mime_types"`
	MaxSizeBytes     int64    `yaml:"max_size_bytes"`
	RequiredFile     bool     `yaml:"required_file"`
}

// Parse decodes a catalog document into templates ready for the registry.
func Parse(data []byte) ([]domain.DocumentTemplate, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("catalog: payload is empty")
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	seen := make(map[string]bool, len(doc.Templates))
	out := make([]domain.DocumentTemplate, 0, len(doc.Templates))
	for i, entry := range doc.Templates {
		if entry.Code == "" {
			return nil, fmt.Errorf("catalog: template #%d has no code", i)
		}
		if seen[entry.Code] {
			return nil, fmt.Errorf("catalog: duplicate code %s", entry.Code)
		}
		seen[entry.Code] = true
		out = append(out, entry.toTemplate())
	}
	return out, nil
}

// Default returns the embedded catalog.
func Default() ([]domain.DocumentTemplate, error) {
	return Parse(defaultCatalog)
}

// Load reads path, or the embedded catalog when path is empty.
func Load(path string) ([]domain.DocumentTemplate, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	tpls, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return tpls, nil
}

// Seed creates every template whose code has no active template yet. Existing
// templates are left untouched so operator edits survive restarts.
func Seed(ctx context.Context, registry ports.TemplateCatalog, templates []domain.DocumentTemplate) (int, error) {
	created := 0
	for _, tpl := range templates {
		_, err := registry.Get(ctx, tpl.Code)
		if err == nil {
			continue
		}
		if !domain.IsKind(err, domain.ErrNotFound) {
			return created, fmt.Errorf("seed %s: %w", tpl.Code, err)
		}
		if _, err := registry.Create(ctx, tpl); err != nil {
			if domain.IsKind(err, domain.ErrAlreadyExists) {
				continue
			}
			return created, fmt.Errorf("seed %s: %w", tpl.Code, err)
		}
		created++
		slog.Debug("template_seeded", slog.String("code", tpl.Code))
	}
	slog.Info("template_catalog_seeded", slog.Int("created", created), slog.Int("total", len(templates)))
	return created, nil
}

func (e Entry) toTemplate() domain.DocumentTemplate {
	tracks := make([]domain.ProcedureTrack, 0, len(e.Tracks))
	for _, t := range e.Tracks {
		tracks = append(tracks, domain.ProcedureTrack(t))
	}
	var schema domain.FieldSchema
	for _, f := range e.Fields {
		schema = append(schema, domain.FieldDefinition{
			Key:         f.Key,
			Label:       f.Label,
			Kind:        domain.FieldKind(f.Kind),
			Required:    f.Required,
			Placeholder: f.Placeholder,
			Rule: domain.FieldRule{
				Min:       f.Min,
				Max:       f.Max,
				MinLength: f.MinLength,
				MaxLength: f.MaxLength,
				Pattern:   f.Pattern,
				Options:   f.Options,
			},
		})
	}
	return domain.DocumentTemplate{
		Code:             e.Code,
		Name:             e.Name,
		Description:      e.Description,
		FieldSchema:      schema,
		FileRules:        domain.FileRules(e.Files),
		ApplicableTracks: tracks,
		RiskTier:         domain.RiskTier(e.RiskTier),
		Required:         e.Required,
		DisplayOrder:     e.Order,
		CreatedBy:        "catalog",
	}
}
