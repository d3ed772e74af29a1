package httpadapter

import (
	"net/http"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

func (rt *Router) classify(w http.ResponseWriter, r *http.Request) {
	var input domain.ClassificationInput
	if err := decodeJSON(w, r, &input, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	result, err := rt.classifier.Classify(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listTracks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tracks": rt.classifier.Tracks()})
}

// listTemplates answers ?track= with the applicable templates, narrowed by
// ?tier= (accumulated tiers) or ?required=true.
func (rt *Router) listTemplates(w http.ResponseWriter, r *http.Request) {
	params, err := bindTemplateListParams(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	track := domain.ProcedureTrack(*params.Track)

	var templates []domain.DocumentTemplate
	switch {
	case params.Tier != nil && *params.Tier != "":
		templates, err = rt.templates.FindByTrackAndRiskTier(r.Context(), track, domain.RiskTier(*params.Tier))
	case params.Required != nil && *params.Required:
		templates, err = rt.templates.FindRequired(r.Context(), track)
	default:
		templates, err = rt.templates.FindApplicable(r.Context(), track)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (rt *Router) createTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl domain.DocumentTemplate
	if err := decodeJSON(w, r, &tpl, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	created, err := rt.templates.Create(r.Context(), tpl)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) getTemplate(w http.ResponseWriter, r *http.Request) {
	code, err := pathParam(r, "code")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	tpl, err := rt.templates.Get(r.Context(), code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (rt *Router) updateTemplate(w http.ResponseWriter, r *http.Request) {
	code, err := pathParam(r, "code")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var patch domain.TemplatePatch
	if err := decodeJSON(w, r, &patch, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	tpl, err := rt.templates.Update(r.Context(), code, patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (rt *Router) deactivateTemplate(w http.ResponseWriter, r *http.Request) {
	code, err := pathParam(r, "code")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := rt.templates.Deactivate(r.Context(), code); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
