package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

const (
	serverName    = "sanitary-filing"
	serverVersion = "1.0.0"
)

// Tools exposes the read-only part of the filing API to MCP clients.
type Tools struct {
	classifier   ports.ProductClassifier
	templates    ports.TemplateCatalog
	completeness ports.CompletenessReporter
}

func NewTools(classifier ports.ProductClassifier, templates ports.TemplateCatalog, completeness ports.CompletenessReporter) *Tools {
	return &Tools{classifier: classifier, templates: templates, completeness: completeness}
}

func NewServer(tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	tools.Register(s)
	return s
}

func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("classify_product",
		mcp.WithDescription("Classify a food product into the NSO, PSA or RSA sanitary registration track."),
		mcp.WithString("food_category", mcp.Required(), mcp.Description("Food category code, e.g. DAIRY")),
		mcp.WithString("risk_level", mcp.Required(), mcp.Enum("LOW", "MEDIUM", "HIGH")),
		mcp.WithString("target_population", mcp.Required(), mcp.Description("Target population code, e.g. GENERAL")),
		mcp.WithString("processing_type", mcp.Required(), mcp.Description("Processing type code, e.g. PASTEURIZED")),
		mcp.WithString("product_name", mcp.Description("Commercial product name")),
		mcp.WithBoolean("imported", mcp.Description("Whether the product is imported")),
	), t.classifyProduct)

	s.AddTool(mcp.NewTool("list_tracks",
		mcp.WithDescription("List the registration tracks with their fees, timelines and required documents."),
	), t.listTracks)

	s.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the active document templates that apply to a track."),
		mcp.WithString("track", mcp.Required(), mcp.Enum("NSO", "PSA", "RSA")),
		mcp.WithBoolean("required_only", mcp.Description("Only mandatory templates")),
	), t.listTemplates)

	s.AddTool(mcp.NewTool("filing_completeness",
		mcp.WithDescription("Report how many required documents of a filing are finalized and which are missing."),
		mcp.WithString("filing_id", mcp.Required(), mcp.Description("Filing identifier")),
	), t.filingCompleteness)
}

func (t *Tools) classifyProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := domain.ClassificationInput{
		FoodCategory:     domain.FoodCategory(strings.ToUpper(req.GetString("food_category", ""))),
		RiskLevel:        domain.RiskLevel(strings.ToUpper(req.GetString("risk_level", ""))),
		TargetPopulation: domain.TargetPopulation(strings.ToUpper(req.GetString("target_population", ""))),
		ProcessingType:   domain.ProcessingType(strings.ToUpper(req.GetString("processing_type", ""))),
		ProductName:      req.GetString("product_name", ""),
		Imported:         req.GetBool("imported", false),
	}
	result, err := t.classifier.Classify(ctx, input)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(result)
}

func (t *Tools) listTracks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"tracks": t.classifier.Tracks()})
}

func (t *Tools) listTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireString("track")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	find := t.templates.FindApplicable
	if req.GetBool("required_only", false) {
		find = t.templates.FindRequired
	}
	templates, err := find(ctx, domain.ProcedureTrack(strings.ToUpper(track)))
	if err != nil {
		return toolError(err), nil
	}
	refs := make([]domain.TemplateRef, 0, len(templates))
	for _, tpl := range templates {
		refs = append(refs, domain.TemplateRef{ID: tpl.ID, Code: tpl.Code, Name: tpl.Name})
	}
	return jsonResult(map[string]any{"templates": refs})
}

func (t *Tools) filingCompleteness(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filingID, err := req.RequireString("filing_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := t.completeness.Summarize(ctx, filingID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(summary)
}

// toolError reports domain failures in-band as an error result.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
