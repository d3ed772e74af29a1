package httpadapter

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

func pathParam(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "bind path parameter "+name, err)
	}
	if value == "" {
		return "", domain.NewError(domain.ErrInvalidInput, "bind path parameter", "%s is required", name)
	}
	return value, nil
}

type templateListParams struct {
	Track    *string
	Tier     *string
	Required *bool
}

func bindTemplateListParams(r *http.Request) (templateListParams, error) {
	var params templateListParams
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "track", query, &params.Track); err != nil {
		return params, domain.WrapError(domain.ErrInvalidInput, "bind query parameter track", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "tier", query, &params.Tier); err != nil {
		return params, domain.WrapError(domain.ErrInvalidInput, "bind query parameter tier", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "required", query, &params.Required); err != nil {
		return params, domain.WrapError(domain.ErrInvalidInput, "bind query parameter required", err)
	}
	return params, nil
}
