package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cotafacil/cotabot/internal/session"
)

func writeArtifact(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
}

func TestLoadLatestPicksNewestArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "table-data-automoveis-all-pages-2025-01-01.json",
		`{"totalRows":1,"rows":[{"VALOR":"R$ 10.000,00","PRAZO":"24 meses","NOME DO BEM":"OLD"}]}`)
	writeArtifact(t, dir, "table-data-automoveis-all-pages-2025-06-15.json",
		`{"totalRows":1,"rows":[{"VALOR":"R$ 50.000,00","PRAZO":"60 meses","NOME DO BEM":"NEW","1ª PARCELA":"R$ 1.234,56","PLANO":"P60","TIPO DE VENDA":"NORMAL"}]}`)

	records, err := NewStore(dir).LoadLatest(session.ProductVehicle)
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.AssetName != "NEW" {
		t.Fatalf("loaded asset %q, want NEW (newest artifact)", r.AssetName)
	}
	if r.Value != 50000 {
		t.Fatalf("value = %v, want 50000", r.Value)
	}
	if r.TermMonths != 60 {
		t.Fatalf("term = %d, want 60", r.TermMonths)
	}
	if r.FirstInstallment != 1234.56 {
		t.Fatalf("first installment = %v, want 1234.56", r.FirstInstallment)
	}
	if r.PlanCode != "P60" || r.SaleType != "NORMAL" {
		t.Fatalf("plan/sale = %q/%q", r.PlanCode, r.SaleType)
	}
}

func TestLoadLatestHeaderAliases(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "table-data-imoveis-all-pages-2025-03-01.json",
		`{"rows":[{"valor":"300000","prazo":"120","primeira_parcela":"2500,10","nome_bem":"APTO","plano":"I120","tipo_venda":"PROMO"}]}`)

	records, err := NewStore(dir).LoadLatest(session.ProductProperty)
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.Value != 300000 || r.TermMonths != 120 || r.FirstInstallment != 2500.10 {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.AssetName != "APTO" || r.PlanCode != "I120" || r.SaleType != "PROMO" {
		t.Fatalf("lowercase aliases not mapped: %+v", r)
	}
}

func TestLoadLatestSkipsUnparsableRows(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "table-data-automoveis-all-pages-2025-01-01.json",
		`{"rows":[
			{"VALOR":"abc","PRAZO":"60"},
			{"VALOR":"50000","PRAZO":"zero"},
			{"VALOR":"0","PRAZO":"60"},
			{"VALOR":"50000","PRAZO":"60","NOME DO BEM":"OK"}
		]}`)

	records, err := NewStore(dir).LoadLatest(session.ProductVehicle)
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if len(records) != 1 || records[0].AssetName != "OK" {
		t.Fatalf("expected only the valid row, got %+v", records)
	}
}

func TestLoadLatestNoData(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewStore(dir).LoadLatest(session.ProductVehicle); err != ErrNoData {
		t.Fatalf("empty dir error = %v, want ErrNoData", err)
	}
	if _, err := NewStore(filepath.Join(dir, "missing")).LoadLatest(session.ProductVehicle); err != ErrNoData {
		t.Fatalf("missing dir error = %v, want ErrNoData", err)
	}

	// Property artifacts must not satisfy a vehicle lookup.
	writeArtifact(t, dir, "table-data-imoveis-all-pages-2025-01-01.json", `{"rows":[]}`)
	if _, err := NewStore(dir).LoadLatest(session.ProductVehicle); err != ErrNoData {
		t.Fatalf("cross-product lookup error = %v, want ErrNoData", err)
	}
}

func TestParseMoneyFormats(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"R$ 50.000,00", 50000},
		{"50000", 50000},
		{"1.234,56", 1234.56},
		{"R$300,5", 300.5},
		{"", 0},
		{"n/a", 0},
	}
	for _, tc := range cases {
		if got := parseMoney(tc.in); got != tc.want {
			t.Errorf("parseMoney(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
