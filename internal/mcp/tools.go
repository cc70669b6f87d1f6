package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/service"
)

// CheckInteractionsParams defines parameters for check_interactions
type CheckInteractionsParams struct {
	Drugs []string `json:"drugs"`
}

// SearchDrugsParams defines parameters for search_drugs
type SearchDrugsParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchDrugsResult is the structured result of search_drugs
type SearchDrugsResult struct {
	Query   string               `json:"query"`
	Results []domain.DrugSummary `json:"results"`
}

func (s *Server) registerTools() {
	s.addTool(&mcp.Tool{
		Name:        "check_interactions",
		Description: "Check every pair of the given drugs for interactions and assess the overall risk",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"drugs": {Type: "array", Items: stringSchema("Drug name"), Description: "Drug names to check, at least two"},
		}, "drugs"),
	}, toolHandler(s, "check_interactions", s.CheckInteractions))

	s.addTool(&mcp.Tool{
		Name:        "recommend_dosage",
		Description: "Recommend a patient-specific dose adjusted for age, weight and organ function",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"drug":       stringSchema("Drug name"),
			"indication": stringSchema("Indication; defaults to the standard indication"),
			"patient":    patientSchema(),
		}, "drug", "patient"),
	}, toolHandler(s, "recommend_dosage", s.RecommendDosage))

	s.addTool(&mcp.Tool{
		Name:        "find_alternatives",
		Description: "Rank substitute medications for a problematic drug",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"drug": stringSchema("Problematic drug name"),
			"reason": {
				Type:        "string",
				Description: "Why a substitute is needed",
				Enum:        []any{"Drug Interaction", "Allergy", "Side Effects", "Cost"},
			},
			"therapeutic_class": stringSchema("Therapeutic class override for the store query"),
			"patient":           patientSchema(),
		}, "drug", "patient"),
	}, toolHandler(s, "find_alternatives", s.FindAlternatives))

	s.addTool(&mcp.Tool{
		Name:        "analyze_prescription",
		Description: "Analyze extracted prescription medications for interactions, dosing and overall safety",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"medications": {
				Type:        "array",
				Description: "Extracted medication records",
				Items: objectSchema(map[string]*jsonschema.Schema{
					"name":         stringSchema("Drug name"),
					"dosage":       stringSchema("Dosage as written, e.g. 500mg"),
					"frequency":    stringSchema("Frequency as written"),
					"duration":     stringSchema("Duration as written"),
					"instructions": stringSchema("Additional instructions"),
					"confidence":   {Type: "number", Description: "Extraction confidence between 0 and 1"},
				}, "name"),
			},
			"patient": patientSchema(),
		}, "medications", "patient"),
	}, toolHandler(s, "analyze_prescription", s.AnalyzePrescription))

	s.addTool(&mcp.Tool{
		Name:        "search_drugs",
		Description: "Search the drug knowledge base by name or generic name",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"query": stringSchema("Search term"),
			"limit": {Type: "integer", Description: "Maximum results, default 10"},
		}, "query"),
	}, toolHandler(s, "search_drugs", s.SearchDrugs))
}

// CheckInteractions runs the interaction check.
func (s *Server) CheckInteractions(ctx context.Context, params CheckInteractionsParams) (service.InteractionReport, string, error) {
	if len(params.Drugs) < 2 {
		return service.InteractionReport{}, "", domain.NewValidationError("drugs", "At least two drugs are required", params.Drugs)
	}
	report := s.engines.CheckInteractions(ctx, params.Drugs)

	var b strings.Builder
	fmt.Fprintf(&b, "Checked %d drugs: %d interaction(s) found. Risk: %s (score %d).",
		len(report.Drugs), len(report.Findings), report.Risk.Level, report.Risk.Score)
	for _, f := range report.Findings {
		fmt.Fprintf(&b, "\n- %s + %s: %s. %s", f.DrugA, f.DrugB, f.Severity, f.Recommendation)
	}
	return report, b.String(), nil
}

// RecommendDosage runs the dosage pipeline. An unavailable recommendation
// is a successful call whose summary carries the reason.
func (s *Server) RecommendDosage(ctx context.Context, params service.DosageRequest) (domain.DosageOutcome, string, error) {
	outcome, err := s.engines.RecommendDosage(ctx, params)
	if err != nil {
		return domain.DosageOutcome{}, "", err
	}
	if !outcome.Available() {
		return outcome, fmt.Sprintf("No dosage recommendation for %s: %s", params.Drug, outcome.Unavailable), nil
	}

	rec := outcome.Recommendation
	summary := fmt.Sprintf("%s: %s %s (total %s/day). Safety score %d/100.",
		rec.DrugName, rec.Dose, rec.Frequency, rec.TotalDaily, rec.SafetyScore)
	if len(rec.Warnings) > 0 {
		summary += "\nWarnings: " + strings.Join(rec.Warnings, "; ")
	}
	return outcome, summary, nil
}

// FindAlternatives runs the alternative ranking engine.
func (s *Server) FindAlternatives(ctx context.Context, params service.AlternativesRequest) (domain.AlternativesResult, string, error) {
	result, err := s.engines.FindAlternatives(ctx, params)
	if err != nil {
		return domain.AlternativesResult{}, "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d alternative(s) for %s", len(result.Candidates), result.Drug)
	if result.Fallback {
		b.WriteString(" (drug not found; name-similarity matches)")
	}
	b.WriteString(".")
	for _, c := range result.Candidates {
		fmt.Fprintf(&b, "\n- %s: suitability %d, safety %d/5, %s", c.Name, c.SuitabilityScore, c.SafetyRating, c.CostComparison)
	}
	return result, b.String(), nil
}

// AnalyzePrescription runs the batch prescription analysis.
func (s *Server) AnalyzePrescription(ctx context.Context, params service.AnalysisRequest) (*domain.PrescriptionAnalysis, string, error) {
	analysis, err := s.engines.Analyze(ctx, params)
	if err != nil {
		return nil, "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyzed %d drug(s). Overall safety %.0f/100, interaction risk %s.",
		analysis.TotalDrugs, analysis.OverallSafety, analysis.Risk.Level)
	for _, m := range analysis.Recommendations {
		fmt.Fprintf(&b, "\n- %s", m.Message)
	}
	return analysis, b.String(), nil
}

// SearchDrugs runs a ranked name search.
func (s *Server) SearchDrugs(ctx context.Context, params SearchDrugsParams) (SearchDrugsResult, string, error) {
	results, err := s.engines.SearchDrugs(ctx, params.Query, params.Limit)
	if err != nil {
		return SearchDrugsResult{}, "", err
	}

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	summary := fmt.Sprintf("%d match(es) for %q", len(results), params.Query)
	if len(names) > 0 {
		summary += ": " + strings.Join(names, ", ")
	}
	return SearchDrugsResult{Query: params.Query, Results: results}, summary, nil
}

// toolHandler adapts a typed tool method to the SDK handler: it decodes the
// arguments, runs the method and returns the summary text together with
// the structured result.
func toolHandler[P, R any](s *Server, name string, run func(context.Context, P) (R, string, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := s.logger.WithField("tool", name)
		logger.Info("Tool invoked")

		var params P
		if err := decodeArguments(req.Params.Arguments, &params); err != nil {
			return errorResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}

		result, summary, err := run(ctx, params)
		if err != nil {
			logger.WithError(err).Warn("Tool call failed")
			return errorResult(err), nil
		}
		return textResult(summary, result)
	}
}

// decodeArguments decodes tool arguments into dst. The server delivers them
// as raw JSON; any other value is re-encoded first.
func decodeArguments(args any, dst any) error {
	var raw []byte
	switch v := args.(type) {
	case nil:
		return nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		raw = data
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func textResult(summary string, result any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
			&mcp.TextContent{Text: string(data)},
		},
		StructuredContent: result,
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	text := err.Error()
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		text = fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Message)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func stringSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func patientSchema() *jsonschema.Schema {
	schema := objectSchema(map[string]*jsonschema.Schema{
		"name":             stringSchema("Patient name"),
		"age":              {Type: "integer", Description: "Age in years, 0 to 150"},
		"weight":           {Type: "number", Description: "Weight in kg, above 0 and at most 500"},
		"conditions":       {Type: "array", Items: stringSchema("Condition"), Description: "Medical conditions"},
		"allergies":        {Type: "array", Items: stringSchema("Allergy"), Description: "Known allergies"},
		"height":           {Type: "number", Description: "Height in cm"},
		"sex":              stringSchema("Sex"),
		"pregnancy_status": stringSchema("Pregnancy status"),
		"lactation_status": {Type: "boolean", Description: "Breastfeeding"},
		"smoking_status":   stringSchema("Smoking status"),
		"alcohol_use":      stringSchema("Alcohol use: none, moderate, heavy or chronic"),
	}, "age", "weight")
	schema.Description = "Patient profile"
	return schema
}
