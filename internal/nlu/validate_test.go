package nlu

import (
	"strings"
	"testing"

	"github.com/cotafacil/cotabot/internal/session"
)

func completeData() *session.CustomerData {
	return &session.CustomerData{
		Value:      50000,
		TermMonths: 60,
		Name:       "João Silva",
		TaxID:      "12345678900",
		BirthDate:  "01/01/1990",
		Email:      "joao@x.com",
	}
}

func TestValidateComplete(t *testing.T) {
	res := Validate(completeData())
	if !res.Valid {
		t.Fatalf("complete data invalid: %+v", res)
	}
}

func TestValidateMissingFields(t *testing.T) {
	data := completeData()
	data.Value = 0
	data.Email = ""

	res := Validate(data)
	if res.Valid {
		t.Fatalf("incomplete data passed validation")
	}
	if len(res.MissingFields) != 2 {
		t.Fatalf("missing fields = %v, want [value email]", res.MissingFields)
	}
	if res.MissingFields[0] != FieldValue || res.MissingFields[1] != FieldEmail {
		t.Fatalf("missing fields = %v, want [value email]", res.MissingFields)
	}
}

func TestValidateNilData(t *testing.T) {
	res := Validate(nil)
	if res.Valid || len(res.MissingFields) != 6 {
		t.Fatalf("nil data result = %+v, want all six fields missing", res)
	}
}

func TestValidateTaxIDFormat(t *testing.T) {
	data := completeData()
	data.TaxID = "123.456.789-00"
	if res := Validate(data); !res.Valid {
		t.Fatalf("formatted CPF rejected: %+v", res)
	}

	data.TaxID = "12345"
	res := Validate(data)
	if res.Valid || res.Problem == "" {
		t.Fatalf("short CPF accepted: %+v", res)
	}
}

func TestValidateEmailFormat(t *testing.T) {
	data := completeData()
	data.Email = "not-an-email"
	res := Validate(data)
	if res.Valid || res.Problem == "" {
		t.Fatalf("bad email accepted: %+v", res)
	}
}

func TestMissingFieldsMessage(t *testing.T) {
	msg := MissingFieldsMessage([]string{FieldValue, FieldEmail}, session.ProductVehicle, session.LangPortuguese)
	if !strings.Contains(msg, "1. Valor do veículo") {
		t.Fatalf("message missing product-specific value label:\n%s", msg)
	}
	if !strings.Contains(msg, "2. Email") {
		t.Fatalf("message missing email label:\n%s", msg)
	}

	en := MissingFieldsMessage([]string{FieldValue}, session.ProductProperty, session.LangEnglish)
	if !strings.Contains(en, "Property value") {
		t.Fatalf("english message missing property label:\n%s", en)
	}
}
