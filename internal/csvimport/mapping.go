package csvimport

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/estate-crm/internal/model"
)

// Mapping assigns CSV column indexes to client fields. Columns without an
// entry are ignored.
type Mapping map[int]model.Field

type headerRule struct {
	field model.Field
	match func(h string) bool
}

func hasAll(h string, words ...string) bool {
	for _, w := range words {
		if !strings.Contains(h, w) {
			return false
		}
	}
	return true
}

func hasAny(h string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(h, w) {
			return true
		}
	}
	return false
}

// headerRules are evaluated in order; the first match wins for a column.
var headerRules = []headerRule{
	{model.FieldClientName, func(h string) bool { return hasAll(h, "client", "name") }},
	{model.FieldCustomerNumber, func(h string) bool { return hasAny(h, "customer", "number", "phone") }},
	{model.FieldLeadStage, func(h string) bool { return hasAll(h, "lead", "stage") }},
	{model.FieldCallingComment, func(h string) bool { return hasAny(h, "comment", "calling") }},
	{model.FieldLeadType, func(h string) bool { return hasAll(h, "lead", "type") }},
	{model.FieldLocationCategory, func(h string) bool { return hasAny(h, "location", "category") }},
	{model.FieldExpectedVisitDate, func(h string) bool { return hasAny(h, "date", "visit") }},
}

// AutoMap infers a mapping from header labels.
func AutoMap(header []string) Mapping {
	m := Mapping{}
	for col, label := range header {
		h := strings.ToLower(label)
		for _, rule := range headerRules {
			if rule.match(h) {
				m[col] = rule.field
				break
			}
		}
	}
	return m
}

// Columns returns the mapped column indexes in ascending order.
func (m Mapping) Columns() []int {
	cols := make([]int, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols
}

// Set maps a column to a field. Fields outside the import set are rejected.
func (m Mapping) Set(col int, field model.Field) error {
	if col < 0 {
		return eris.Errorf("csvimport: invalid column %d", col)
	}
	if !field.Importable() {
		return eris.Errorf("csvimport: field %q cannot be imported", field)
	}
	m[col] = field
	return nil
}

// Clone returns an independent copy.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Duplicates lists fields fed by more than one column, with their columns
// in ascending order.
func (m Mapping) Duplicates() map[model.Field][]int {
	byField := map[model.Field][]int{}
	for _, col := range m.Columns() {
		byField[m[col]] = append(byField[m[col]], col)
	}
	dups := map[model.Field][]int{}
	for f, cols := range byField {
		if len(cols) > 1 {
			dups[f] = cols
		}
	}
	return dups
}

// String renders the mapping in the form accepted by ParseMapping.
func (m Mapping) String() string {
	parts := make([]string, 0, len(m))
	for _, col := range m.Columns() {
		parts = append(parts, fmt.Sprintf("%d=%s", col, m[col]))
	}
	return strings.Join(parts, ",")
}

// ParseMapping parses "0=client_name,3=lead_type". Unknown or non-importable
// field names are an error.
func ParseMapping(s string) (Mapping, error) {
	m := Mapping{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		colStr, fieldStr, ok := strings.Cut(part, "=")
		if !ok {
			return nil, eris.Errorf("csvimport: bad mapping entry %q", part)
		}
		col, err := strconv.Atoi(strings.TrimSpace(colStr))
		if err != nil {
			return nil, eris.Wrapf(err, "csvimport: bad column in %q", part)
		}
		field, known := model.ParseField(strings.TrimSpace(fieldStr))
		if !known {
			return nil, eris.Errorf("csvimport: unknown field %q", fieldStr)
		}
		if err := m.Set(col, field); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Preset is a saved mapping loaded from YAML. Columns pins fields by index;
// Headers matches header labels case-insensitively. Column entries win.
//
//	columns:
//	  0: client_name
//	headers:
//	  "Mobile No": customer_number
type Preset struct {
	Columns map[int]string    `yaml:"columns"`
	Headers map[string]string `yaml:"headers"`
}

// LoadMappingFile reads a mapping preset from disk.
func LoadMappingFile(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "csvimport: read mapping file")
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "csvimport: parse mapping file")
	}
	return &p, nil
}

// Resolve applies the preset to a header row. Entries naming unknown fields
// are logged and skipped.
func (p *Preset) Resolve(header []string) Mapping {
	m := Mapping{}
	for col, label := range header {
		want := strings.ToLower(strings.TrimSpace(label))
		for h, name := range p.Headers {
			if strings.ToLower(strings.TrimSpace(h)) != want {
				continue
			}
			p.assign(m, col, name)
		}
	}
	for col, name := range p.Columns {
		p.assign(m, col, name)
	}
	return m
}

func (p *Preset) assign(m Mapping, col int, name string) {
	field, ok := model.ParseField(name)
	if !ok {
		zap.L().Warn("mapping preset: unknown field", zap.String("field", name), zap.Int("column", col))
		return
	}
	if err := m.Set(col, field); err != nil {
		zap.L().Warn("mapping preset: skipping entry", zap.Int("column", col), zap.Error(err))
	}
}
