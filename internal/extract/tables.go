package extract

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/normalize"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

type patternDoc struct {
	Expr  string  `yaml:"expr"`
	Delta float64 `yaml:"delta"`
}

type fieldDoc struct {
	Name     string       `yaml:"name"`
	Kind     string       `yaml:"kind"`
	Base     float64      `yaml:"base"`
	Bonus    float64      `yaml:"bonus"`
	Penalty  float64      `yaml:"penalty"`
	Patterns []patternDoc `yaml:"patterns"`
}

type tablesDoc struct {
	Classifier struct {
		Keywords []string `yaml:"keywords"`
	} `yaml:"classifier"`
	Fields map[string]fieldDoc `yaml:"fields"`
	Tables map[string][]string `yaml:"tables"`
}

// Pattern is one compiled alternative of a field.
type Pattern struct {
	Re    *regexp.Regexp
	Delta float64
}

// Field is a named extraction rule with its ordered patterns.
type Field struct {
	Name    string
	Kind    normalize.Kind
	Base    float64
	Bonus   float64
	Penalty float64

	Patterns []Pattern
}

// Tables holds compiled pattern sets per document type. Immutable after load.
type Tables struct {
	Keywords []string
	byType   map[constants.DocumentType][]Field
}

// Fields returns the pattern set of dt.
func (t *Tables) Fields(dt constants.DocumentType) []Field {
	return t.byType[dt]
}

// Field looks up a field definition by name across all document types.
func (t *Tables) Field(name string) (Field, bool) {
	for _, fields := range t.byType {
		for _, f := range fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return Field{}, false
}

// DefaultTables compiles the embedded tables.
func DefaultTables() (*Tables, error) {
	return LoadTables(defaultTablesYAML)
}

// LoadTablesFile compiles tables from path; an empty path means the embedded set.
func LoadTablesFile(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern tables: %w", err)
	}
	return LoadTables(b)
}

// LoadTables parses and compiles a YAML table document.
func LoadTables(data []byte) (*Tables, error) {
	var doc tablesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse pattern tables: %w", err)
	}

	compiled := make(map[string]Field, len(doc.Fields))
	for key, fd := range doc.Fields {
		f, err := compileField(key, fd)
		if err != nil {
			return nil, err
		}
		compiled[key] = f
	}

	t := &Tables{byType: map[constants.DocumentType][]Field{}}
	for _, kw := range doc.Classifier.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			t.Keywords = append(t.Keywords, kw)
		}
	}
	for label, names := range doc.Tables {
		dt, ok := constants.CanonicalDocumentType(label)
		if !ok {
			return nil, fmt.Errorf("unknown document type %q", label)
		}
		seen := map[string]bool{}
		for _, name := range names {
			f, ok := compiled[name]
			if !ok {
				return nil, fmt.Errorf("table %s: undefined field %q", dt, name)
			}
			if seen[f.Name] {
				return nil, fmt.Errorf("table %s: duplicate field %q", dt, f.Name)
			}
			seen[f.Name] = true
			t.byType[dt] = append(t.byType[dt], f)
		}
	}
	for _, dt := range constants.DocumentTypes() {
		if len(t.byType[constants.DocumentType(dt)]) == 0 {
			return nil, fmt.Errorf("no pattern table for document type %q", dt)
		}
	}
	return t, nil
}

func compileField(key string, fd fieldDoc) (Field, error) {
	name := fd.Name
	if name == "" {
		name = key
	}
	kind, err := normalize.ParseKind(fd.Kind)
	if err != nil {
		return Field{}, fmt.Errorf("field %s: %w", name, err)
	}
	if len(fd.Patterns) == 0 {
		return Field{}, fmt.Errorf("field %s: no patterns", name)
	}
	f := Field{Name: name, Kind: kind, Base: fd.Base, Bonus: fd.Bonus, Penalty: fd.Penalty}
	for i, p := range fd.Patterns {
		re, err := regexp.Compile("(?im)" + p.Expr)
		if err != nil {
			return Field{}, fmt.Errorf("field %s pattern %d: %w", name, i, err)
		}
		if re.NumSubexp() < 1 {
			return Field{}, fmt.Errorf("field %s pattern %d: no capture group", name, i)
		}
		f.Patterns = append(f.Patterns, Pattern{Re: re, Delta: p.Delta})
	}
	return f, nil
}
