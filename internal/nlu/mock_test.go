package nlu

import (
	"context"
	"testing"

	"github.com/cotafacil/cotabot/internal/session"
)

func TestMockExtractFieldsStructuredMessage(t *testing.T) {
	a := NewMockAdapter()
	msg := "Valor: R$ 50000\nPrazo: 60 meses\nNome: João Silva\nCPF: 12345678900\nData Nascimento: 01/01/1990\nEmail: joao@x.com"

	data, err := a.ExtractFields(context.Background(), msg, session.ProductVehicle)
	if err != nil {
		t.Fatalf("ExtractFields() error = %v", err)
	}
	if data == nil {
		t.Fatalf("ExtractFields() = nil for structured message")
	}
	if data.Value != 50000 || data.TermMonths != 60 {
		t.Fatalf("value/term = %v/%d, want 50000/60", data.Value, data.TermMonths)
	}
	if data.Name != "João Silva" || data.TaxID != "12345678900" {
		t.Fatalf("name/cpf = %q/%q", data.Name, data.TaxID)
	}
	if data.BirthDate != "01/01/1990" || data.Email != "joao@x.com" {
		t.Fatalf("birth/email = %q/%q", data.BirthDate, data.Email)
	}
	if res := Validate(data); !res.Valid {
		t.Fatalf("extracted data failed validation: %+v", res)
	}
}

func TestMockExtractFieldsPartial(t *testing.T) {
	a := NewMockAdapter()
	data, err := a.ExtractFields(context.Background(), "Valor: R$ 30.000,00 e prazo: 48", session.ProductVehicle)
	if err != nil {
		t.Fatalf("ExtractFields() error = %v", err)
	}
	if data == nil || data.Value != 30000 || data.TermMonths != 48 {
		t.Fatalf("partial extraction = %+v", data)
	}
	if res := Validate(data); res.Valid {
		t.Fatalf("partial data should not validate")
	}
}

func TestMockExtractFieldsNothing(t *testing.T) {
	a := NewMockAdapter()
	data, err := a.ExtractFields(context.Background(), "bom dia!", session.ProductVehicle)
	if err != nil {
		t.Fatalf("ExtractFields() error = %v", err)
	}
	if data != nil {
		t.Fatalf("vague message extracted %+v, want nil", data)
	}
}

func TestMockClassifyProductType(t *testing.T) {
	a := NewMockAdapter()
	ctx := context.Background()

	cases := []struct {
		in   string
		want session.ProductType
	}{
		{"quero cotar um carro", session.ProductVehicle},
		{"cotação de imóvel", session.ProductProperty},
		{"quero uma moto", session.ProductOther},
		{"preciso de consultoria", session.ProductOther},
	}
	for _, tc := range cases {
		got, err := a.ClassifyProductType(ctx, tc.in)
		if err != nil {
			t.Fatalf("ClassifyProductType(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ClassifyProductType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMockDetectIntent(t *testing.T) {
	a := NewMockAdapter()
	ctx := context.Background()

	cases := []struct {
		in   string
		want Intent
	}{
		{"quero falar com um atendente", IntentHumanRequest},
		{"quero uma cotação de carro", IntentQuoteRequest},
		{"o que é consórcio?", IntentQuestion},
		{"boa tarde", IntentOther},
		{"Valor: R$ 50000\nPrazo: 60 meses\nNome: A\nCPF: 1\nEmail: a@b.c", IntentQuoteRequest},
	}
	for _, tc := range cases {
		got, err := a.DetectIntent(ctx, tc.in, nil)
		if err != nil {
			t.Fatalf("DetectIntent(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("DetectIntent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
