package nlu

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cotafacil/cotabot/internal/session"
)

// ValidationResult reports whether extracted customer data can drive a
// quote. Exactly one of MissingFields or Problem is set when Valid is false.
type ValidationResult struct {
	Valid         bool
	MissingFields []string
	Problem       string
}

const (
	FieldValue     = "value"
	FieldTerm      = "term"
	FieldName      = "name"
	FieldTaxID     = "tax_id"
	FieldBirthDate = "birth_date"
	FieldEmail     = "email"
)

var (
	reDigits = regexp.MustCompile(`\D`)
	reMail   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Validate checks completeness first, then format. Format checks only run
// once every field is present so the customer gets one problem at a time.
func Validate(data *session.CustomerData) ValidationResult {
	if data == nil {
		return ValidationResult{MissingFields: []string{
			FieldValue, FieldTerm, FieldName, FieldTaxID, FieldBirthDate, FieldEmail,
		}}
	}

	var missing []string
	if data.Value <= 0 {
		missing = append(missing, FieldValue)
	}
	if data.TermMonths <= 0 {
		missing = append(missing, FieldTerm)
	}
	if strings.TrimSpace(data.Name) == "" {
		missing = append(missing, FieldName)
	}
	if strings.TrimSpace(data.TaxID) == "" {
		missing = append(missing, FieldTaxID)
	}
	if strings.TrimSpace(data.BirthDate) == "" {
		missing = append(missing, FieldBirthDate)
	}
	if strings.TrimSpace(data.Email) == "" {
		missing = append(missing, FieldEmail)
	}
	if len(missing) > 0 {
		return ValidationResult{MissingFields: missing}
	}

	if len(reDigits.ReplaceAllString(data.TaxID, "")) != 11 {
		return ValidationResult{Problem: "CPF inválido"}
	}
	if !reMail.MatchString(data.Email) {
		return ValidationResult{Problem: "Email inválido"}
	}

	return ValidationResult{Valid: true}
}

var fieldLabelsPT = map[string]string{
	FieldValue:     "Valor do bem",
	FieldTerm:      "Prazo em meses",
	FieldName:      "Nome completo",
	FieldTaxID:     "CPF",
	FieldBirthDate: "Data de nascimento",
	FieldEmail:     "Email",
}

var fieldLabelsEN = map[string]string{
	FieldValue:     "Asset value",
	FieldTerm:      "Term in months",
	FieldName:      "Full name",
	FieldTaxID:     "CPF",
	FieldBirthDate: "Date of birth",
	FieldEmail:     "Email",
}

// MissingFieldsMessage builds the targeted re-prompt naming exactly the
// fields still needed.
func MissingFieldsMessage(missing []string, productType session.ProductType, lang session.Language) string {
	labels := fieldLabelsPT
	header := "⚠️ *Informações Faltando*\n\nPara gerar sua cotação, ainda preciso de:\n"
	footer := "\nPor favor, envie essas informações."
	if lang == session.LangEnglish {
		labels = fieldLabelsEN
		header = "⚠️ *Missing Information*\n\nTo generate your quote I still need:\n"
		footer = "\nPlease send this information."
	}

	var b strings.Builder
	b.WriteString(header)
	for i, f := range missing {
		label, ok := labels[f]
		if !ok {
			label = f
		}
		if f == FieldValue {
			if productType == session.ProductVehicle {
				if lang == session.LangEnglish {
					label = "Vehicle value"
				} else {
					label = "Valor do veículo"
				}
			} else if productType == session.ProductProperty {
				if lang == session.LangEnglish {
					label = "Property value"
				} else {
					label = "Valor do imóvel"
				}
			}
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, label)
	}
	b.WriteString("\n")
	b.WriteString(footer)
	return b.String()
}
