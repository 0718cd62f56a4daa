// Package catalog loads pre-scraped consortium plan tables from the data
// directory. The scraper replaces artifacts wholesale; this package only
// selects and normalizes the most recent one per product.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cotafacil/cotabot/internal/session"
)

// ErrNoData signals that no catalog artifact exists for the product. It is
// a recoverable condition; callers surface it to the customer as "catalog
// unavailable" rather than crashing.
var ErrNoData = errors.New("no catalog data available")

// Record is one normalized row of the plan catalog.
type Record struct {
	AssetName        string
	Value            float64
	TermMonths       int
	FirstInstallment float64
	PlanCode         string
	SaleType         string
}

// Artifact prefixes follow the scraper's naming convention; the timestamp
// suffix makes lexicographic order chronological.
const (
	vehiclePrefix  = "table-data-automoveis-all-pages-"
	propertyPrefix = "table-data-imoveis-all-pages-"
)

// Store reads plan catalogs from a directory of scraped JSON artifacts.
type Store struct {
	dataDir string
}

func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

type artifact struct {
	TotalRows int              `json:"totalRows"`
	Rows      []map[string]any `json:"rows"`
}

// LoadLatest returns the normalized records of the most recent artifact for
// the product type. Rows whose value or term cannot be parsed to a positive
// number are skipped, never fatal.
func (s *Store) LoadLatest(productType session.ProductType) ([]Record, error) {
	var prefix string
	switch productType {
	case session.ProductVehicle:
		prefix = vehiclePrefix
	case session.ProductProperty:
		prefix = propertyPrefix
	default:
		return nil, fmt.Errorf("no catalog for product type %q", productType)
	}

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, ErrNoData
	}
	sort.Strings(names)
	latest := names[len(names)-1]

	raw, err := os.ReadFile(filepath.Join(s.dataDir, latest))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", latest, err)
	}

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", latest, err)
	}

	records := make([]Record, 0, len(a.Rows))
	for _, row := range a.Rows {
		r, ok := normalizeRow(row)
		if !ok {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// Header aliases seen across scrape revisions of the source portal.
var (
	valueKeys       = []string{"VALOR", "Valor", "valor"}
	termKeys        = []string{"PRAZO", "Prazo", "prazo"}
	installmentKeys = []string{"1ª PARCELA", "1ª parcela", "primeira_parcela"}
	assetKeys       = []string{"NOME DO BEM", "Nome do bem", "nome_bem"}
	planKeys        = []string{"PLANO", "Plano", "plano"}
	saleTypeKeys    = []string{"TIPO DE VENDA", "Tipo de Venda", "tipo_venda"}
)

func normalizeRow(row map[string]any) (Record, bool) {
	value := parseMoney(firstKey(row, valueKeys))
	if value <= 0 {
		return Record{}, false
	}
	term := parseIntLoose(firstKey(row, termKeys))
	if term <= 0 {
		return Record{}, false
	}
	return Record{
		AssetName:        firstKey(row, assetKeys),
		Value:            value,
		TermMonths:       term,
		FirstInstallment: parseMoney(firstKey(row, installmentKeys)),
		PlanCode:         firstKey(row, planKeys),
		SaleType:         firstKey(row, saleTypeKeys),
	}, true
}

func firstKey(row map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := row[k]
		if !ok {
			continue
		}
		var text string
		switch t := v.(type) {
		case string:
			text = t
		case float64:
			text = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			continue
		}
		if strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// parseMoney tolerates pt-BR currency formatting: "R$ 50.000,00" -> 50000.
// Dots are thousand separators, the comma is the decimal mark.
func parseMoney(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	// Keep only the last decimal mark if multiple commas slipped through.
	if n := strings.Count(cleaned, "."); n > 1 {
		idx := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:idx], ".", "") + cleaned[idx:]
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseIntLoose(text string) int {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}
