package domain

// ProcedureTrack is derived by classification, never chosen by a user.
type ProcedureTrack string

const (
	TrackNSO ProcedureTrack = "NSO"
	TrackPSA ProcedureTrack = "PSA"
	TrackRSA ProcedureTrack = "RSA"
)

func (t ProcedureTrack) Valid() bool {
	switch t {
	case TrackNSO, TrackPSA, TrackRSA:
		return true
	}
	return false
}

// Document types each track demands, accumulated from the lower tracks.
const (
	DocExistenceCertificate    = "EXISTENCE_CERTIFICATE"
	DocRUT                     = "RUT"
	DocTechnicalSheet          = "TECHNICAL_SHEET"
	DocLabel                   = "LABEL"
	DocSanitaryConcept         = "SANITARY_CONCEPT"
	DocPhysicochemicalAnalysis = "PHYSICOCHEMICAL_ANALYSIS"
	DocMicrobiologicalAnalysis = "MICROBIOLOGICAL_ANALYSIS"
	DocGMPCertificate          = "GMP_CERTIFICATE"
	DocStabilityStudy          = "STABILITY_STUDY"
	DocHACCPPlan               = "HACCP_PLAN"
)

var (
	nsoDocuments = []string{DocExistenceCertificate, DocRUT, DocTechnicalSheet, DocLabel, DocSanitaryConcept}
	psaDocuments = append(append([]string{}, nsoDocuments...), DocPhysicochemicalAnalysis, DocMicrobiologicalAnalysis, DocGMPCertificate)
	rsaDocuments = append(append([]string{}, psaDocuments...), DocStabilityStudy, DocHACCPPlan)
)

// RequiredDocuments returns a fresh copy of the document types the track demands.
func (t ProcedureTrack) RequiredDocuments() []string {
	var src []string
	switch t {
	case TrackNSO:
		src = nsoDocuments
	case TrackPSA:
		src = psaDocuments
	case TrackRSA:
		src = rsaDocuments
	}
	return append([]string(nil), src...)
}

type TrackInfo struct {
	Track          ProcedureTrack `json:"track"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	FormCode       string         `json:"form_code"`
	EstimatedDays  int            `json:"estimated_days"`
	ValidityYears  int            `json:"validity_years"`
	FeeEstimateCOP string         `json:"fee_estimate_cop"`
}

var trackCatalog = []TrackInfo{
	{
		Track:          TrackNSO,
		Name:           "Notificación Sanitaria Obligatoria",
		Description:    "Low-risk fast track for products with an established safety profile.",
		FormCode:       "ASS-NSA-FM097",
		EstimatedDays:  15,
		ValidityYears:  0,
		FeeEstimateCOP: "150000-300000",
	},
	{
		Track:          TrackPSA,
		Name:           "Permiso Sanitario de Alimentos",
		Description:    "Medium-risk track requiring physicochemical and microbiological evidence.",
		FormCode:       "ASS-PSA-FM098",
		EstimatedDays:  45,
		ValidityYears:  5,
		FeeEstimateCOP: "500000-1200000",
	},
	{
		Track:          TrackRSA,
		Name:           "Registro Sanitario de Alimentos",
		Description:    "High-risk track requiring hazard analysis and stability evidence.",
		FormCode:       "ASS-RSA-FM099",
		EstimatedDays:  90,
		ValidityYears:  10,
		FeeEstimateCOP: "1500000-3000000",
	},
}

func Tracks() []TrackInfo {
	return append([]TrackInfo(nil), trackCatalog...)
}

func (t ProcedureTrack) Info() (TrackInfo, bool) {
	for _, info := range trackCatalog {
		if info.Track == t {
			return info, true
		}
	}
	return TrackInfo{}, false
}
