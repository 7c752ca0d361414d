package chi

import (
	"fmt"
	"net/http"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	"github.com/ohmygaugh/factgpt/internal/domain"
)

// tagsDisabled is the only tags path value that turns the tag filter off.
const tagsDisabled = "null"

var validate = validator.New(validator.WithRequiredStructEnabled())

// queryParams are the path parameters shared by /plot and /chat.
type queryParams struct {
	KTags int    `validate:"gte=0"`
	Q     string `validate:"required"`
}

// searchParams are the path parameters of /search.
type searchParams struct {
	queryParams
	Sort string `validate:"required"`
	Tags string

	sortByDate bool
}

func (p searchParams) tagFilter() bool {
	return p.Tags != tagsDisabled
}

func bindQueryParams(r *http.Request) (queryParams, error) {
	var p queryParams
	if err := bindPath(r, "k_tags", &p.KTags, true); err != nil {
		return queryParams{}, err
	}
	if err := bindPath(r, "q", &p.Q, true); err != nil {
		return queryParams{}, err
	}
	if err := validateParams(p); err != nil {
		return queryParams{}, err
	}
	return p, nil
}

func bindSearchParams(r *http.Request) (searchParams, error) {
	var p searchParams
	if err := bindPath(r, "sort", &p.Sort, true); err != nil {
		return searchParams{}, err
	}
	if err := bindPath(r, "tags", &p.Tags, false); err != nil {
		return searchParams{}, err
	}
	if err := bindPath(r, "k_tags", &p.KTags, true); err != nil {
		return searchParams{}, err
	}
	if err := bindPath(r, "q", &p.Q, true); err != nil {
		return searchParams{}, err
	}
	if err := validateParams(p); err != nil {
		return searchParams{}, err
	}

	sortByDate, err := parseFlag(p.Sort)
	if err != nil {
		return searchParams{}, err
	}
	p.sortByDate = sortByDate
	return p, nil
}

// bindPath decodes a percent-encoded path parameter into dest.
func bindPath(r *http.Request, name string, dest any, required bool) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, gochi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      required,
		})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidParameter, name, err)
	}
	return nil
}

func validateParams(p any) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidParameter, err)
	}
	return nil
}

// parseFlag accepts the usual spellings of a boolean path value.
func parseFlag(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes", "t", "y":
		return true, nil
	case "0", "false", "off", "no", "f", "n":
		return false, nil
	default:
		return false, fmt.Errorf("%w: sort: %q is not a boolean", domain.ErrInvalidParameter, v)
	}
}
