package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/actuallystonmai/flick-found/internal/domain"
)

// GenerateRequest is one submission of favourite titles and genres.
type GenerateRequest struct {
	Owner    string   `json:"owner" validate:"required,max=128"`
	Titles   []string `json:"titles" validate:"min=1,max=5,dive,required,max=300"`
	Genres   []string `json:"genres" validate:"max=20,dive,required,max=64"`
	Feedback string   `json:"feedback" validate:"max=2000"`
}

func (r GenerateRequest) trimmed() GenerateRequest {
	out := GenerateRequest{
		Owner:    strings.TrimSpace(r.Owner),
		Titles:   make([]string, len(r.Titles)),
		Genres:   make([]string, len(r.Genres)),
		Feedback: strings.TrimSpace(r.Feedback),
	}
	for i, t := range r.Titles {
		out.Titles[i] = strings.TrimSpace(t)
	}
	for i, g := range r.Genres {
		out.Genres[i] = strings.TrimSpace(g)
	}
	return out
}

type validator struct {
	v *playground.Validate
}

func newValidator() *validator {
	v := playground.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &validator{v: v}
}

// validate returns a *domain.InputError listing each failing field.
func (v *validator) validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	fields := make(map[string]string, len(fieldErrs))
	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := friendlyMessage(fe)
		fields[fe.Field()] = msg
		reasons = append(reasons, fe.Field()+" "+msg)
	}
	return &domain.InputError{Reason: strings.Join(reasons, "; "), Fields: fields}
}

func friendlyMessage(e playground.FieldError) string {
	isSlice := e.Kind() == reflect.Slice
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if isSlice {
			return fmt.Sprintf("must have at least %s entries", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if isSlice {
			return fmt.Sprintf("must have at most %s entries", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	default:
		return "is invalid"
	}
}
