package mcpadapter

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/usecase"
)

type templatesFake struct {
	required bool
}

func (f *templatesFake) Create(context.Context, domain.DocumentTemplate) (*domain.DocumentTemplate, error) {
	return nil, nil
}

func (f *templatesFake) Update(context.Context, string, domain.TemplatePatch) (*domain.DocumentTemplate, error) {
	return nil, nil
}

func (f *templatesFake) Deactivate(context.Context, string) error { return nil }

func (f *templatesFake) Get(context.Context, string) (*domain.DocumentTemplate, error) {
	return nil, nil
}

func (f *templatesFake) FindApplicable(context.Context, domain.ProcedureTrack) ([]domain.DocumentTemplate, error) {
	return []domain.DocumentTemplate{{ID: "t1", Code: "LABEL_DESIGN", Name: "Label"}, {ID: "t2", Code: "PRODUCT_PHOTO", Name: "Photo"}}, nil
}

func (f *templatesFake) FindRequired(context.Context, domain.ProcedureTrack) ([]domain.DocumentTemplate, error) {
	f.required = true
	return []domain.DocumentTemplate{{ID: "t1", Code: "LABEL_DESIGN", Name: "Label"}}, nil
}

func (f *templatesFake) FindByTrackAndRiskTier(context.Context, domain.ProcedureTrack, domain.RiskTier) ([]domain.DocumentTemplate, error) {
	return nil, nil
}

type completenessFake struct{}

func (completenessFake) Summarize(_ context.Context, id string) (*domain.CompletenessSummary, error) {
	if id == "missing" {
		return nil, domain.NewError(domain.ErrNotFound, "summarize", "filing %s", id)
	}
	return &domain.CompletenessSummary{FilingID: id, TotalRequired: 5, CompletedRequired: 2, Percent: 40}, nil
}

func (completenessFake) ExportChecklist(context.Context, string, io.Writer) (string, error) {
	return "", nil
}

func newTestTools() (*Tools, *templatesFake) {
	templates := &templatesFake{}
	return NewTools(usecase.NewClassificationUseCase(), templates, completenessFake{}), templates
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestClassifyProductTool(t *testing.T) {
	tools, _ := newTestTools()
	res, err := tools.classifyProduct(context.Background(), callRequest("classify_product", map[string]any{
		"food_category":     "dairy",
		"risk_level":        "MEDIUM",
		"target_population": "GENERAL",
		"processing_type":   "PASTEURIZED",
		"product_name":      "Queso fresco",
	}))
	if err != nil {
		t.Fatalf("classify_product error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var result domain.ClassificationResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Track != domain.TrackPSA {
		t.Fatalf("expected PSA, got %s", result.Track)
	}
}

func TestClassifyProductToolReportsInvalidInput(t *testing.T) {
	tools, _ := newTestTools()
	res, err := tools.classifyProduct(context.Background(), callRequest("classify_product", map[string]any{
		"food_category": "DAIRY",
	}))
	if err != nil {
		t.Fatalf("classify_product error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result")
	}
}

func TestListTracksTool(t *testing.T) {
	tools, _ := newTestTools()
	res, err := tools.listTracks(context.Background(), callRequest("list_tracks", nil))
	if err != nil {
		t.Fatalf("list_tracks error = %v", err)
	}
	var body struct {
		Tracks []domain.TrackInfo `json:"tracks"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
		t.Fatalf("decode tracks: %v", err)
	}
	if len(body.Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(body.Tracks))
	}
}

func TestListTemplatesToolRequiredOnly(t *testing.T) {
	tools, templates := newTestTools()
	res, err := tools.listTemplates(context.Background(), callRequest("list_templates", map[string]any{
		"track":         "nso",
		"required_only": true,
	}))
	if err != nil {
		t.Fatalf("list_templates error = %v", err)
	}
	if !templates.required {
		t.Fatalf("expected FindRequired to be used")
	}
	if text := resultText(t, res); !strings.Contains(text, "LABEL_DESIGN") || strings.Contains(text, "PRODUCT_PHOTO") {
		t.Fatalf("unexpected templates %s", text)
	}
}

func TestListTemplatesToolRequiresTrack(t *testing.T) {
	tools, _ := newTestTools()
	res, err := tools.listTemplates(context.Background(), callRequest("list_templates", map[string]any{}))
	if err != nil {
		t.Fatalf("list_templates error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result for missing track")
	}
}

func TestFilingCompletenessTool(t *testing.T) {
	tools, _ := newTestTools()
	res, err := tools.filingCompleteness(context.Background(), callRequest("filing_completeness", map[string]any{"filing_id": "f-1"}))
	if err != nil {
		t.Fatalf("filing_completeness error = %v", err)
	}
	var summary domain.CompletenessSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.FilingID != "f-1" || summary.Percent != 40 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	res, err = tools.filingCompleteness(context.Background(), callRequest("filing_completeness", map[string]any{"filing_id": "missing"}))
	if err != nil {
		t.Fatalf("filing_completeness error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Fatalf("expected not found tool error")
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	tools, _ := newTestTools()
	s := NewServer(tools)
	registered := s.ListTools()
	for _, name := range []string{"classify_product", "list_tracks", "list_templates", "filing_completeness"} {
		if _, ok := registered[name]; !ok {
			t.Fatalf("tool %s not registered", name)
		}
	}
}
