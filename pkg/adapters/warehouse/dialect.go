package warehouse

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

//go:embed batteries/*.yaml
var batteryFS embed.FS

// NamedQuery is one introspection statement and the snapshot key it fills.
type NamedQuery struct {
	Key string `yaml:"key"`
	SQL string `yaml:"sql"`
}

// Dialect is the per-warehouse description loaded from batteries/<name>.yaml.
type Dialect struct {
	Name           string       `yaml:"name"`
	IdentQuote     string       `yaml:"ident_quote"`
	ConnectionInfo string       `yaml:"connection_info"`
	NumericTypes   []string     `yaml:"numeric_types"`
	TemporalTypes  []string     `yaml:"temporal_types"`
	TextTypes      []string     `yaml:"text_types"`
	Database       []NamedQuery `yaml:"database_battery"`
	Account        []NamedQuery `yaml:"account_battery"`
}

// LoadDialect reads the embedded definition for name. A non-empty
// overridePath replaces it with a file on disk.
func LoadDialect(name, overridePath string) (*Dialect, error) {
	var (
		data []byte
		err  error
	)
	if overridePath != "" {
		data, err = os.ReadFile(overridePath)
	} else {
		data, err = batteryFS.ReadFile("batteries/" + name + ".yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s battery: %w", name, err)
	}

	var d Dialect
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse %s battery: %w", name, err)
	}
	if d.Name == "" {
		d.Name = name
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

var batteryKeys = map[string]bool{
	models.KeyTables:       true,
	models.KeyViews:        true,
	models.KeyColumns:      true,
	models.KeyForeignKeys:  true,
	models.KeyIndexes:      true,
	models.KeyQueryHistory: true,
}

// Validate rejects unknown or duplicate battery keys and empty statements.
func (d *Dialect) Validate() error {
	if len(d.Database) == 0 {
		return fmt.Errorf("%s battery: database_battery is empty", d.Name)
	}
	for _, battery := range [][]NamedQuery{d.Database, d.Account} {
		seen := make(map[string]bool, len(battery))
		for _, q := range battery {
			if !batteryKeys[q.Key] {
				return fmt.Errorf("%s battery: unknown key %q", d.Name, q.Key)
			}
			if seen[q.Key] {
				return fmt.Errorf("%s battery: duplicate key %q", d.Name, q.Key)
			}
			if strings.TrimSpace(q.SQL) == "" {
				return fmt.Errorf("%s battery: empty statement for %q", d.Name, q.Key)
			}
			seen[q.Key] = true
		}
	}
	return nil
}

// Battery returns the statements to run, in file order. Dialects without an
// account-wide battery use the database battery for both scopes.
func (d *Dialect) Battery(databaseScoped bool) []NamedQuery {
	if databaseScoped || len(d.Account) == 0 {
		return d.Database
	}
	return d.Account
}

// TypeClass selects the statistics projection for a column.
type TypeClass int

const (
	TypeOther TypeClass = iota
	TypeNumeric
	TypeTemporal
	TypeText
)

func (c TypeClass) String() string {
	switch c {
	case TypeNumeric:
		return "numeric"
	case TypeTemporal:
		return "temporal"
	case TypeText:
		return "text"
	}
	return "other"
}

var typeParams = regexp.MustCompile(`\s*\(.*\)\s*$`)

// Classify maps a declared column type to its class. Matching is
// case-insensitive and ignores precision, so NUMBER(38,0) is numeric.
func (d *Dialect) Classify(dataType string) TypeClass {
	t := strings.ToUpper(strings.TrimSpace(typeParams.ReplaceAllString(dataType, "")))
	switch {
	case contains(d.NumericTypes, t):
		return TypeNumeric
	case contains(d.TemporalTypes, t):
		return TypeTemporal
	case contains(d.TextTypes, t):
		return TypeText
	}
	return TypeOther
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
