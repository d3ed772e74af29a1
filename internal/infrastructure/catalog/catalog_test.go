package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/usecase"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/repository/memory"
)

func TestDefaultCatalogCoversEveryTrack(t *testing.T) {
	tpls, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	byCode := make(map[string]domain.DocumentTemplate, len(tpls))
	for _, tpl := range tpls {
		byCode[tpl.Code] = tpl
	}
	for _, track := range []domain.ProcedureTrack{domain.TrackNSO, domain.TrackPSA, domain.TrackRSA} {
		for _, code := range track.RequiredDocuments() {
			tpl, ok := byCode[code]
			if !ok {
				t.Fatalf("%s: catalog has no template %s", track, code)
			}
			if !tpl.Required || !tpl.AppliesTo(track) {
				t.Fatalf("%s: template %s must be required for the track", track, code)
			}
		}
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	registry := usecase.NewTemplateRegistryUseCase(memory.NewStore().Templates())
	tpls, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	created, err := Seed(ctx, registry, tpls)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if created != len(tpls) {
		t.Fatalf("expected %d templates created, got %d", len(tpls), created)
	}
	again, err := Seed(ctx, registry, tpls)
	if err != nil || again != 0 {
		t.Fatalf("second Seed() = %d, %v", again, err)
	}

	required, err := registry.FindRequired(ctx, domain.TrackRSA)
	if err != nil {
		t.Fatalf("FindRequired() error = %v", err)
	}
	if len(required) != len(domain.TrackRSA.RequiredDocuments()) {
		t.Fatalf("expected %d required RSA templates, got %d", len(domain.TrackRSA.RequiredDocuments()), len(required))
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := []byte(`
templates:
  - code: EXTRA
    name: Extra document
    tracks: [NSO]
    fields:
      - key: note
        label: Note
        kind: TEXT
        required: true
        max_length: 10
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	tpls, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tpls) != 1 || tpls[0].Code != "EXTRA" || *tpls[0].FieldSchema[0].Rule.MaxLength != 10 {
		t.Fatalf("unexpected templates %+v", tpls)
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":     "  ",
		"malformed": "templates: [",
		"no code":   "templates:\n  - name: X\n",
		"duplicate": "templates:\n  - code: A\n  - code: A\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
