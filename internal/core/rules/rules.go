// Package rules holds the data-driven extraction rule table keyed by
// (document type, field). The default table ships as embedded YAML and can be
// replaced at startup without code changes.
package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/docverify/internal/core/domain"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Normalizer names the value clean-up applied after a pattern matches.
type Normalizer string

const (
	NormalizeText   Normalizer = "text"
	NormalizeDigits Normalizer = "digits"
	NormalizeUpper  Normalizer = "upper"
	NormalizeDate   Normalizer = "date"
)

type Rule struct {
	Field     domain.FieldName
	Weight    int
	Normalize Normalizer
	Patterns  []*regexp.Regexp
}

// Apply returns the normalized value captured by the first matching pattern.
func (r Rule) Apply(text string) (string, bool) {
	for _, re := range r.Patterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		value := normalizeValue(r.Normalize, m[1])
		if value == "" {
			continue
		}
		return value, true
	}
	return "", false
}

// Table is immutable once loaded and safe for concurrent use.
type Table struct {
	byType map[domain.DocumentType][]Rule
}

// Rules returns the ordered rules of one document type.
func (t *Table) Rules(docType domain.DocumentType) []Rule {
	return t.byType[docType]
}

func (t *Table) Rule(docType domain.DocumentType, field domain.FieldName) (Rule, bool) {
	for _, r := range t.byType[docType] {
		if r.Field == field {
			return r, true
		}
	}
	return Rule{}, false
}

// Fields lists the fields a document type defines, in canonical order.
func (t *Table) Fields(docType domain.DocumentType) []domain.FieldName {
	rules := t.byType[docType]
	out := make([]domain.FieldName, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Field)
	}
	return out
}

// Weights returns the scoring weight per field for one document type.
func (t *Table) Weights(docType domain.DocumentType) map[domain.FieldName]int {
	out := make(map[domain.FieldName]int, len(t.byType[docType]))
	for _, r := range t.byType[docType] {
		out[r.Field] = r.Weight
	}
	return out
}

type fileSpec struct {
	Documents map[string][]ruleSpec `yaml:"documents"`
}

type ruleSpec struct {
	Field     string   `yaml:"field"`
	Weight    int      `yaml:"weight"`
	Normalize string   `yaml:"normalize"`
	Patterns  []string `yaml:"patterns"`
}

// Default returns the embedded rule table.
func Default() (*Table, error) {
	return Parse(bytes.NewReader(defaultRulesYAML))
}

// MustDefault panics if the embedded table is invalid.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(fmt.Sprintf("rules: embedded table: %v", err))
	}
	return t
}

// LoadFile reads a rule table from path; an empty path yields the default table.
func LoadFile(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*Table, error) {
	var file fileSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode rules", err)
	}

	table := &Table{byType: make(map[domain.DocumentType][]Rule, len(file.Documents))}
	for rawType, specs := range file.Documents {
		docType := domain.DocumentType(rawType)
		if !docType.Valid() {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode rules", fmt.Errorf("unknown document type %q", rawType))
		}
		compiled := make(map[domain.FieldName]Rule, len(specs))
		for _, rs := range specs {
			rule, err := compileRule(rs)
			if err != nil {
				return nil, domain.WrapError(domain.ErrInvalidInput, "compile rules", fmt.Errorf("%s/%s: %w", rawType, rs.Field, err))
			}
			if _, dup := compiled[rule.Field]; dup {
				return nil, domain.WrapError(domain.ErrInvalidInput, "compile rules", fmt.Errorf("%s/%s: duplicate field", rawType, rs.Field))
			}
			compiled[rule.Field] = rule
		}
		ordered := make([]Rule, 0, len(compiled))
		for _, field := range domain.FieldOrder {
			if rule, ok := compiled[field]; ok {
				ordered = append(ordered, rule)
			}
		}
		table.byType[docType] = ordered
	}

	for _, docType := range domain.DocumentTypes {
		if len(table.byType[docType]) == 0 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "compile rules", fmt.Errorf("no rules for %s", docType))
		}
	}
	return table, nil
}

func compileRule(rs ruleSpec) (Rule, error) {
	field := domain.FieldName(rs.Field)
	if !field.Valid() {
		return Rule{}, fmt.Errorf("unknown field")
	}
	if rs.Weight <= 0 {
		return Rule{}, fmt.Errorf("weight must be positive")
	}
	norm := Normalizer(rs.Normalize)
	switch norm {
	case "":
		norm = NormalizeText
	case NormalizeText, NormalizeDigits, NormalizeUpper, NormalizeDate:
	default:
		return Rule{}, fmt.Errorf("unknown normalizer %q", rs.Normalize)
	}
	if len(rs.Patterns) == 0 {
		return Rule{}, fmt.Errorf("no patterns")
	}

	patterns := make([]*regexp.Regexp, 0, len(rs.Patterns))
	for i, p := range rs.Patterns {
		re, err := regexp.Compile(`(?im)` + p)
		if err != nil {
			return Rule{}, fmt.Errorf("pattern %d: %w", i, err)
		}
		if re.NumSubexp() < 1 {
			return Rule{}, fmt.Errorf("pattern %d: no capturing group", i)
		}
		patterns = append(patterns, re)
	}
	return Rule{Field: field, Weight: rs.Weight, Normalize: norm, Patterns: patterns}, nil
}

func normalizeValue(norm Normalizer, raw string) string {
	switch norm {
	case NormalizeDigits:
		return strings.Join(strings.Fields(raw), "")
	case NormalizeUpper:
		return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	case NormalizeDate:
		return strings.TrimSpace(raw)
	default:
		return strings.Join(strings.Fields(raw), " ")
	}
}
