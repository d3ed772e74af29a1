package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

const (
	validationGMP         = "GMP_CERTIFICATE"
	validationHACCP       = "HACCP_PLAN"
	validationThermal     = "THERMAL_PROCESS_VALIDATION"
	validationNutritional = "NUTRITIONAL_STUDIES"

	importedAdvisory = "Producto importado requiere documentación adicional del país de origen"
)

// Classify maps the four classification inputs to a procedure track and a
// coherence verdict. It is deterministic and never fails: problems are
// reported through Coherent=false and the justification.
func Classify(input domain.ClassificationInput) domain.ClassificationResult {
	sensitive := input.TargetPopulation.Sensitive()
	track := trackForRisk(input.RiskLevel)
	if sensitive {
		track = domain.TrackRSA
	}

	coherent, reason := coherence(input)

	var b strings.Builder
	fmt.Fprintf(&b, "category %s (default risk %s), declared risk %s, population %s, processing %s",
		input.FoodCategory, input.FoodCategory.DefaultRisk(), input.RiskLevel, input.TargetPopulation, input.ProcessingType)
	if sensitive {
		b.WriteString("; sensitive population requires RSA")
	}
	fmt.Fprintf(&b, "; track %s", track)
	if !coherent {
		b.WriteString("; incoherent: ")
		b.WriteString(reason)
	}

	return domain.ClassificationResult{
		Track:                 track,
		Coherent:              coherent,
		Justification:         b.String(),
		RequiredDocuments:     track.RequiredDocuments(),
		AdditionalValidations: additionalValidations(input),
		Advisories:            advisories(input),
	}
}

func trackForRisk(risk domain.RiskLevel) domain.ProcedureTrack {
	switch risk {
	case domain.RiskHigh:
		return domain.TrackRSA
	case domain.RiskMedium:
		return domain.TrackPSA
	default:
		return domain.TrackNSO
	}
}

func coherence(input domain.ClassificationInput) (bool, string) {
	if input.FoodCategory.DefaultRisk() != domain.RiskLow || input.RiskLevel != domain.RiskHigh {
		return true, ""
	}
	if input.TargetPopulation.Sensitive() || input.ProcessingType.RequiresStabilityStudies() {
		return true, ""
	}
	return false, fmt.Sprintf("declared risk %s exceeds the %s default of category %s without a sensitive population or a processing type that requires stability studies",
		input.RiskLevel, input.FoodCategory.DefaultRisk(), input.FoodCategory)
}

func additionalValidations(input domain.ClassificationInput) []string {
	out := []string{}
	if input.RiskLevel.RequiresGMP() {
		out = append(out, validationGMP)
	}
	if input.RiskLevel.RequiresHACCP() {
		out = append(out, validationHACCP)
	}
	if input.ProcessingType.RequiresThermalValidation() {
		out = append(out, validationThermal)
	}
	if input.TargetPopulation.RequiresNutritionalStudies() {
		out = append(out, validationNutritional)
	}
	return out
}

func advisories(input domain.ClassificationInput) []string {
	out := []string{}
	if warning := input.TargetPopulation.LabelWarning(); warning != "" {
		out = append(out, "Advertencia obligatoria en etiqueta: "+warning)
	}
	if input.Imported {
		out = append(out, importedAdvisory)
	}
	return out
}

type ClassificationUseCase struct{}

func NewClassificationUseCase() *ClassificationUseCase {
	return &ClassificationUseCase{}
}

// Classify rejects unknown enum values; everything else is a verdict, not an error.
func (uc *ClassificationUseCase) Classify(_ context.Context, input domain.ClassificationInput) (domain.ClassificationResult, error) {
	if err := validateClassificationInput(input); err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrInvalidInput, "classify", err)
	}
	return Classify(input), nil
}

func (uc *ClassificationUseCase) Tracks() []domain.TrackInfo {
	return domain.Tracks()
}

func validateClassificationInput(input domain.ClassificationInput) error {
	switch {
	case !input.FoodCategory.Valid():
		return fmt.Errorf("unknown food category %q", input.FoodCategory)
	case !input.RiskLevel.Valid():
		return fmt.Errorf("unknown risk level %q", input.RiskLevel)
	case !input.TargetPopulation.Valid():
		return fmt.Errorf("unknown target population %q", input.TargetPopulation)
	case !input.ProcessingType.Valid():
		return fmt.Errorf("unknown processing type %q", input.ProcessingType)
	}
	return nil
}
