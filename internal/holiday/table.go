// Package holiday holds the static holiday reference table used to decorate
// calendar days. The table is versioned data loaded once; lookups never
// influence booking status.
package holiday

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"railbook/internal/civil"
	appLog "railbook/internal/log"
)

// Category distinguishes ordinary holidays from ones that form a long weekend.
type Category string

const (
	CategoryHoliday     Category = "holiday"
	CategoryLongWeekend Category = "long-weekend"
)

// Label is the human text for the category.
func (c Category) Label() string {
	if c == CategoryLongWeekend {
		return "Long Weekend"
	}
	return "Holiday"
}

// Entry is one dated holiday.
type Entry struct {
	Date     civil.Date `json:"date"`
	Name     string     `json:"name"`
	Category Category   `json:"category"`
}

// Table is an immutable date -> Entry index.
type Table struct {
	version string
	byDate  map[civil.Date]Entry
}

//go:embed holidays.yaml
var embeddedTable []byte

type fileFormat struct {
	Version  string `yaml:"version"`
	Holidays []struct {
		Date     string `yaml:"date"`
		Name     string `yaml:"name"`
		Category string `yaml:"category"`
	} `yaml:"holidays"`
}

// Parse decodes a YAML holiday table. Malformed rows are logged and skipped;
// a document that is not YAML, or that has no usable rows, is an error.
func Parse(data []byte) (*Table, error) {
	if len(data) == 0 {
		return nil, errors.New("holiday: empty table")
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("holiday: decode table: %w", err)
	}

	t := &Table{
		version: ff.Version,
		byDate:  make(map[civil.Date]Entry, len(ff.Holidays)),
	}
	for _, row := range ff.Holidays {
		d, err := civil.Parse(strings.TrimSpace(row.Date))
		if err != nil {
			appLog.Error("holiday: skipping row with bad date", err, "date", row.Date, "name", row.Name)
			continue
		}
		cat := CategoryHoliday
		switch Category(row.Category) {
		case "", CategoryHoliday:
		case CategoryLongWeekend:
			cat = CategoryLongWeekend
		default:
			appLog.Info("holiday: unknown category, treating as holiday", "date", row.Date, "category", row.Category)
		}
		t.byDate[d] = Entry{Date: d, Name: strings.TrimSpace(row.Name), Category: cat}
	}
	if len(t.byDate) == 0 {
		return nil, errors.New("holiday: table has no valid entries")
	}
	return t, nil
}

// Embedded returns the table compiled into the binary.
func Embedded() *Table {
	t, err := Parse(embeddedTable)
	if err != nil {
		// The embedded asset is covered by tests; an empty table keeps the
		// calendar usable if it is ever broken.
		appLog.Error("holiday: embedded table invalid", err)
		return Empty()
	}
	return t
}

// Empty returns a table with no holidays.
func Empty() *Table {
	return &Table{byDate: map[civil.Date]Entry{}}
}

// Lookup returns the holiday on d, if any.
func (t *Table) Lookup(d civil.Date) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.byDate[d]
	return e, ok
}

func (t *Table) Version() string {
	if t == nil {
		return ""
	}
	return t.version
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byDate)
}

// Between returns entries with from <= date <= to in date order.
func (t *Table) Between(from, to civil.Date) []Entry {
	out := make([]Entry, 0)
	if t == nil {
		return out
	}
	for d, e := range t.byDate {
		if !d.Before(from) && !d.After(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
