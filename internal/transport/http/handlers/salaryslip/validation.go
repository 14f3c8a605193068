package salarysliphandler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"salaryslip/internal/domain/salaryslip"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (h *Handler) validatePayload(p employeePayload) []ValidationIssue {
	var issues []ValidationIssue
	if err := salaryslip.ValidateWage(p.Wage); err != nil {
		_, reason, _ := strings.Cut(err.Error(), ": ")
		issues = append(issues, ValidationIssue{Field: "wage", Reason: reason})
	}

	err := h.validate.Struct(p)
	if err == nil {
		return issues
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return append(issues, ValidationIssue{Reason: err.Error()})
	}
	for _, fe := range fieldErrs {
		issues = append(issues, ValidationIssue{Field: fe.Field(), Reason: reasonFor(fe)})
	}
	return issues
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
