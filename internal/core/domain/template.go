package domain

import (
	"fmt"
	"strings"
	"time"
)

type FieldKind string

const (
	FieldText     FieldKind = "TEXT"
	FieldTextArea FieldKind = "TEXTAREA"
	FieldNumber   FieldKind = "NUMBER"
	FieldInteger  FieldKind = "INTEGER"
	FieldDate     FieldKind = "DATE"
	FieldBoolean  FieldKind = "BOOLEAN"
	FieldSelect   FieldKind = "SELECT"
	FieldEmail    FieldKind = "EMAIL"
)

func (k FieldKind) Valid() bool {
	switch k {
	case FieldText, FieldTextArea, FieldNumber, FieldInteger, FieldDate, FieldBoolean, FieldSelect, FieldEmail:
		return true
	}
	return false
}

// FieldRule holds the recognized constraints; unset pointers mean unconstrained.
type FieldRule struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Options   []string `json:"options,omitempty"`
}

type FieldDefinition struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Rule        FieldRule `json:"rule"`
}

// FieldSchema is ordered; the order is the form's display order.
type FieldSchema []FieldDefinition

func (s FieldSchema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for i, field := range s {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			return fmt.Errorf("field #%d: key is required", i)
		}
		if strings.TrimSpace(field.Label) == "" {
			return fmt.Errorf("field %q: label is required", key)
		}
		if !field.Kind.Valid() {
			return fmt.Errorf("field %q: unknown kind %q", key, field.Kind)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("field %q: duplicate key", key)
		}
		seen[key] = struct{}{}

		rule := field.Rule
		if field.Kind == FieldSelect && len(rule.Options) == 0 {
			return fmt.Errorf("field %q: select requires options", key)
		}
		if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
			return fmt.Errorf("field %q: min greater than max", key)
		}
		if rule.MinLength != nil && *rule.MinLength < 0 {
			return fmt.Errorf("field %q: negative min_length", key)
		}
		if rule.MinLength != nil && rule.MaxLength != nil && *rule.MinLength > *rule.MaxLength {
			return fmt.Errorf("field %q: min_length greater than max_length", key)
		}
	}
	return nil
}

func (s FieldSchema) RequiredKeys() []string {
	keys := make([]string, 0, len(s))
	for _, field := range s {
		if field.Required {
			keys = append(keys, field.Key)
		}
	}
	return keys
}

type FileRules struct {
	AllowedMIMETypes []string `json:"allowed_mime_types,omitempty"`
	MaxSizeBytes     int64    `json:"max_size_bytes,omitempty"`
	RequiredFile     bool     `json:"required_file"`
}

func (r FileRules) Validate() error {
	if r.MaxSizeBytes < 0 {
		return fmt.Errorf("max_size_bytes must not be negative")
	}
	for _, mime := range r.AllowedMIMETypes {
		if strings.TrimSpace(mime) == "" {
			return fmt.Errorf("allowed_mime_types contains an empty entry")
		}
	}
	return nil
}

// Allows reports whether the MIME type passes the allow-list; an empty list allows everything.
func (r FileRules) Allows(mimeType string) bool {
	if len(r.AllowedMIMETypes) == 0 {
		return true
	}
	mimeType = normalizeMIME(mimeType)
	for _, allowed := range r.AllowedMIMETypes {
		if normalizeMIME(allowed) == mimeType {
			return true
		}
	}
	return false
}

func normalizeMIME(v string) string {
	if idx := strings.IndexByte(v, ';'); idx >= 0 {
		v = v[:idx]
	}
	return strings.ToLower(strings.TrimSpace(v))
}

// RiskTier is the ordinal tier used for track/risk composition.
type RiskTier string

const (
	TierNone RiskTier = ""
	TierI    RiskTier = "I"
	TierIIA  RiskTier = "IIA"
	TierIIB  RiskTier = "IIB"
	TierIII  RiskTier = "III"
)

// Rank orders tiers; untiered templates rank 0 and so match every tier.
func (t RiskTier) Rank() int {
	switch t {
	case TierI:
		return 1
	case TierIIA:
		return 2
	case TierIIB:
		return 3
	case TierIII:
		return 4
	}
	return 0
}

func (t RiskTier) Valid() bool {
	return t == TierNone || t.Rank() > 0
}

type DocumentTemplate struct {
	ID               string           `json:"id"`
	Code             string           `json:"code"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	FieldSchema      FieldSchema      `json:"field_schema"`
	FileRules        FileRules        `json:"file_rules"`
	ApplicableTracks []ProcedureTrack `json:"applicable_tracks"`
	RiskTier         RiskTier         `json:"risk_tier,omitempty"`
	Required         bool             `json:"required"`
	DisplayOrder     int              `json:"display_order"`
	Version          int              `json:"version"`
	Active           bool             `json:"active"`
	CreatedBy        string           `json:"created_by,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (t *DocumentTemplate) AppliesTo(track ProcedureTrack) bool {
	for _, applicable := range t.ApplicableTracks {
		if applicable == track {
			return true
		}
	}
	return false
}

// FileOnly templates carry their payload as an uploaded file with no form fields.
func (t *DocumentTemplate) FileOnly() bool {
	return len(t.FieldSchema) == 0
}

// TemplatePatch carries a partial update; nil fields are left untouched.
type TemplatePatch struct {
	Code             *string          `json:"code,omitempty"`
	Name             *string          `json:"name,omitempty"`
	Description      *string          `json:"description,omitempty"`
	FieldSchema      *FieldSchema     `json:"field_schema,omitempty"`
	FileRules        *FileRules       `json:"file_rules,omitempty"`
	ApplicableTracks []ProcedureTrack `json:"applicable_tracks,omitempty"`
	RiskTier         *RiskTier        `json:"risk_tier,omitempty"`
	Required         *bool            `json:"required,omitempty"`
	DisplayOrder     *int             `json:"display_order,omitempty"`
}
