package medmap

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/periop-ai/platform/pkg/common/models"
)

// Table is the static complication-to-treatment lookup loaded at startup.
// Read-only after Load.
type Table struct {
	entries map[string]models.Recommendation
	source  string
}

// Load reads the medication map CSV. An empty path yields the built-in
// default table; a configured path that cannot be read or parsed is an error
// so startup fails loudly on a bad deployment.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening medication map: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing medication map: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("medication map %s has no data rows", path)
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Complication", "Recommended_Medication", "Dosage", "Duration"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("medication map %s missing column %s", path, required)
		}
	}

	source := filepath.Base(path)
	entries := make(map[string]models.Recommendation, len(rows)-1)
	for _, row := range rows[1:] {
		key := strings.ToLower(strings.TrimSpace(row[col["Complication"]]))
		if key == "" {
			continue
		}
		entries[key] = models.Recommendation{
			Medication: strings.TrimSpace(row[col["Recommended_Medication"]]),
			Dosage:     strings.TrimSpace(row[col["Dosage"]]),
			Duration:   strings.TrimSpace(row[col["Duration"]]),
			Source:     source,
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("medication map %s has no usable rows", path)
	}

	return &Table{entries: entries, source: source}, nil
}

// Default is the minimal map shipped with the service for deployments that
// have not mounted a medication_map.csv.
func Default() *Table {
	entries := map[string]models.Recommendation{
		"infection":     {Medication: "Antibiotics", Dosage: "500 mg/day", Duration: "7 days", Source: "builtin"},
		"bleeding":      {Medication: "Blood Transfusion + Hemostatic Agent", Dosage: "2 units", Duration: "1 days", Source: "builtin"},
		"organ failure": {Medication: "IV Fluids + Vasopressors", Dosage: "2 L/day", Duration: "5 days", Source: "builtin"},
		"none":          {Medication: "Pain Management", Dosage: "100 mg/day", Duration: "1 days", Source: "builtin"},
	}
	return &Table{entries: entries, source: "builtin"}
}

// Lookup is case-insensitive on the complication label.
func (t *Table) Lookup(label string) (models.Recommendation, bool) {
	rec, ok := t.entries[strings.ToLower(strings.TrimSpace(label))]
	return rec, ok
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) Source() string {
	return t.source
}
