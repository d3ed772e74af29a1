package domain

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// RequiresGMP reports whether a good-manufacturing-practice certificate is mandatory.
func (r RiskLevel) RequiresGMP() bool {
	return r == RiskMedium || r == RiskHigh
}

func (r RiskLevel) RequiresHACCP() bool {
	return r == RiskHigh
}

type FoodCategory string

const (
	CategoryBakery                 FoodCategory = "BAKERY"
	CategoryConfectionery          FoodCategory = "CONFECTIONERY"
	CategoryCannedFruitsVegetables FoodCategory = "CANNED_FRUITS_VEGETABLES"
	CategorySaucesCondiments       FoodCategory = "SAUCES_CONDIMENTS"
	CategoryDairy                  FoodCategory = "DAIRY"
	CategoryMeatProducts           FoodCategory = "MEAT_PRODUCTS"
	CategoryFishSeafood            FoodCategory = "FISH_SEAFOOD"
	CategoryJuicesBeverages        FoodCategory = "JUICES_BEVERAGES"
	CategoryInfantFood             FoodCategory = "INFANT_FOOD"
	CategoryReadyToEat             FoodCategory = "READY_TO_EAT"
	CategoryOther                  FoodCategory = "OTHER"
)

var foodCategoryRisk = map[FoodCategory]RiskLevel{
	CategoryBakery:                 RiskLow,
	CategoryConfectionery:          RiskLow,
	CategoryCannedFruitsVegetables: RiskLow,
	CategorySaucesCondiments:       RiskLow,
	CategoryDairy:                  RiskHigh,
	CategoryMeatProducts:           RiskHigh,
	CategoryFishSeafood:            RiskMedium,
	CategoryJuicesBeverages:        RiskMedium,
	CategoryInfantFood:             RiskHigh,
	CategoryReadyToEat:             RiskLow,
	CategoryOther:                  RiskLow,
}

func (c FoodCategory) Valid() bool {
	_, ok := foodCategoryRisk[c]
	return ok
}

// DefaultRisk is the risk level the agency associates with the category.
func (c FoodCategory) DefaultRisk() RiskLevel {
	if risk, ok := foodCategoryRisk[c]; ok {
		return risk
	}
	return RiskLow
}

type TargetPopulation string

const (
	PopulationGeneral      TargetPopulation = "GENERAL"
	PopulationSpecial      TargetPopulation = "SPECIAL"
	PopulationChildren     TargetPopulation = "CHILDREN"
	PopulationInfants      TargetPopulation = "INFANTS_UNDER_1"
	PopulationPregnant     TargetPopulation = "PREGNANT"
	PopulationLactating    TargetPopulation = "LACTATING"
	PopulationElderly      TargetPopulation = "ELDERLY"
	PopulationAthletes     TargetPopulation = "ATHLETES"
	PopulationSpecialDiets TargetPopulation = "SPECIAL_DIETS"
)

type populationTraits struct {
	sensitive          bool
	nutritionalStudies bool
	labelWarning       string
}

var populations = map[TargetPopulation]populationTraits{
	PopulationGeneral:      {},
	PopulationSpecial:      {labelWarning: "Para uso específico según indicaciones"},
	PopulationChildren:     {sensitive: true, nutritionalStudies: true, labelWarning: "No recomendado para menores de [edad] años"},
	PopulationInfants:      {sensitive: true, nutritionalStudies: true, labelWarning: "La lactancia materna es el mejor alimento para el niño"},
	PopulationPregnant:     {sensitive: true, nutritionalStudies: true, labelWarning: "Consulte con su médico durante el embarazo"},
	PopulationLactating:    {sensitive: true, nutritionalStudies: true, labelWarning: "Consulte con su médico durante la lactancia"},
	PopulationElderly:      {sensitive: true, labelWarning: "Consulte con su médico antes del consumo"},
	PopulationAthletes:     {nutritionalStudies: true, labelWarning: "Suplemento dietario - No sustituye una dieta equilibrada"},
	PopulationSpecialDiets: {sensitive: true, nutritionalStudies: true, labelWarning: "Para uso específico según indicaciones médicas"},
}

func (p TargetPopulation) Valid() bool {
	_, ok := populations[p]
	return ok
}

// Sensitive populations always force the highest-scrutiny track.
func (p TargetPopulation) Sensitive() bool {
	return populations[p].sensitive
}

func (p TargetPopulation) RequiresNutritionalStudies() bool {
	return populations[p].nutritionalStudies
}

// LabelWarning returns the mandatory label text, empty when none applies.
func (p TargetPopulation) LabelWarning() string {
	return populations[p].labelWarning
}

type ProcessingType string

const (
	ProcessingRefrigerated         ProcessingType = "REFRIGERATED"
	ProcessingFrozen               ProcessingType = "FROZEN"
	ProcessingPasteurized          ProcessingType = "PASTEURIZED"
	ProcessingSterilized           ProcessingType = "STERILIZED"
	ProcessingUHT                  ProcessingType = "UHT_STERILIZATION"
	ProcessingBaked                ProcessingType = "BAKED"
	ProcessingVacuumPacked         ProcessingType = "VACUUM_PACKED"
	ProcessingCanned               ProcessingType = "CANNED"
	ProcessingDehydrated           ProcessingType = "DEHYDRATED"
	ProcessingModifiedAtmosphere   ProcessingType = "MODIFIED_ATMOSPHERE"
	ProcessingPreservatives        ProcessingType = "PRESERVATIVE_ADDITIVES"
	ProcessingControlledFerment    ProcessingType = "CONTROLLED_FERMENTATION"
	ProcessingIQFFreezing          ProcessingType = "IQF_FREEZING"
	ProcessingSimpleExtraction     ProcessingType = "SIMPLE_EXTRACTION"
	ProcessingIndustrialRefining   ProcessingType = "INDUSTRIAL_REFINING"
	ProcessingSimpleMilling        ProcessingType = "SIMPLE_MILLING"
	ProcessingCuredSausages        ProcessingType = "CURED_SAUSAGES"
	ProcessingSimpleCooking        ProcessingType = "SIMPLE_COOKING"
	ProcessingChemicalSynthesis    ProcessingType = "CHEMICAL_SYNTHESIS"
	ProcessingNaturalExtraction    ProcessingType = "NATURAL_EXTRACTION"
	ProcessingEncapsulation        ProcessingType = "ENCAPSULATION"
	ProcessingTableting            ProcessingType = "TABLETING"
	ProcessingSimpleMix            ProcessingType = "SIMPLE_MIX"
	ProcessingVitaminFortification ProcessingType = "VITAMIN_FORTIFICATION"
	ProcessingCombined             ProcessingType = "COMBINED"
	ProcessingOther                ProcessingType = "OTHER"
)

type processingTraits struct {
	stabilityStudies  bool
	thermalValidation bool
}

var processingTypes = map[ProcessingType]processingTraits{
	ProcessingRefrigerated:         {},
	ProcessingFrozen:               {},
	ProcessingPasteurized:          {thermalValidation: true},
	ProcessingSterilized:           {thermalValidation: true},
	ProcessingUHT:                  {thermalValidation: true},
	ProcessingBaked:                {thermalValidation: true},
	ProcessingVacuumPacked:         {stabilityStudies: true},
	ProcessingCanned:               {stabilityStudies: true, thermalValidation: true},
	ProcessingDehydrated:           {stabilityStudies: true},
	ProcessingModifiedAtmosphere:   {stabilityStudies: true},
	ProcessingPreservatives:        {stabilityStudies: true},
	ProcessingControlledFerment:    {thermalValidation: true},
	ProcessingIQFFreezing:          {stabilityStudies: true},
	ProcessingSimpleExtraction:     {},
	ProcessingIndustrialRefining:   {},
	ProcessingSimpleMilling:        {},
	ProcessingCuredSausages:        {stabilityStudies: true},
	ProcessingSimpleCooking:        {},
	ProcessingChemicalSynthesis:    {},
	ProcessingNaturalExtraction:    {},
	ProcessingEncapsulation:        {stabilityStudies: true},
	ProcessingTableting:            {stabilityStudies: true},
	ProcessingSimpleMix:            {},
	ProcessingVitaminFortification: {},
	ProcessingCombined:             {},
	ProcessingOther:                {},
}

func (p ProcessingType) Valid() bool {
	_, ok := processingTypes[p]
	return ok
}

func (p ProcessingType) RequiresStabilityStudies() bool {
	return processingTypes[p].stabilityStudies
}

func (p ProcessingType) RequiresThermalValidation() bool {
	return processingTypes[p].thermalValidation
}

// ClassificationInput is supplied per request and never persisted on its own.
type ClassificationInput struct {
	FoodCategory     FoodCategory     `json:"food_category"`
	RiskLevel        RiskLevel        `json:"risk_level"`
	TargetPopulation TargetPopulation `json:"target_population"`
	ProcessingType   ProcessingType   `json:"processing_type"`
	ProductName      string           `json:"product_name"`
	Imported         bool             `json:"imported"`
}

type ClassificationResult struct {
	Track                 ProcedureTrack `json:"track"`
	Coherent              bool           `json:"coherent"`
	Justification         string         `json:"justification"`
	RequiredDocuments     []string       `json:"required_documents"`
	AdditionalValidations []string       `json:"additional_validations"`
	Advisories            []string       `json:"advisories"`
}
