// Package workshop holds the static event dataset and derives the temporal
// context (today, status, next event) the assistant answers from.
package workshop

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed dataset.yaml
var defaultDatasetYAML []byte

const dateLayout = "02.01.2006"

// Dataset is the immutable workshop knowledge compiled into every system prompt.
type Dataset struct {
	Title        string        `yaml:"title" json:"title"`
	Timezone     string        `yaml:"timezone" json:"timezone"`
	Days         []Day         `yaml:"days" json:"days"`
	Locations    []Location    `yaml:"locations" json:"locations"`
	Parking      []Location    `yaml:"parking" json:"parking"`
	Reservations []Reservation `yaml:"reservations" json:"reservations"`
	Info         []InfoSection `yaml:"info" json:"info"`
	Keywords     []KeywordRule `yaml:"keywords" json:"keywords"`
}

// Day is one event day and its agenda in display order.
type Day struct {
	Key      string         `yaml:"key" json:"key"`
	Date     string         `yaml:"date" json:"date"`
	Schedule []ScheduleItem `yaml:"schedule" json:"schedule"`

	civil time.Time
}

// CivilDate is the day at midnight UTC, used for calendar comparisons.
func (d Day) CivilDate() time.Time { return d.civil }

type ScheduleItem struct {
	Time     string `yaml:"time" json:"time"`
	Activity string `yaml:"activity" json:"activity"`
	Location string `yaml:"location,omitempty" json:"location,omitempty"`
	Maps     string `yaml:"maps,omitempty" json:"maps,omitempty"`
	Note     string `yaml:"note,omitempty" json:"note,omitempty"`
}

type Location struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Address string   `yaml:"address,omitempty" json:"address,omitempty"`
	Maps    string   `yaml:"maps" json:"maps"`
	Note    string   `yaml:"note,omitempty" json:"note,omitempty"`
	Details []Detail `yaml:"details,omitempty" json:"details,omitempty"`
}

type Reservation struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Code    string   `yaml:"code" json:"code"`
	Time    string   `yaml:"time" json:"time"`
	Guests  int      `yaml:"guests" json:"guests"`
	Details []Detail `yaml:"details,omitempty" json:"details,omitempty"`
}

// Detail is an ordered label/value pair.
type Detail struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// InfoSection holds free-form auxiliary knowledge (travel, tips, emergency, costs).
type InfoSection struct {
	ID      string      `yaml:"id" json:"id"`
	Title   string      `yaml:"title" json:"title"`
	Entries []InfoEntry `yaml:"entries" json:"entries"`
}

// InfoEntry is a node of an info section: a value, a list of items, or nested children.
type InfoEntry struct {
	Label    string      `yaml:"label" json:"label"`
	Value    string      `yaml:"value,omitempty" json:"value,omitempty"`
	Items    []string    `yaml:"items,omitempty" json:"items,omitempty"`
	Children []InfoEntry `yaml:"children,omitempty" json:"children,omitempty"`
}

// KeywordRule maps a user-facing term onto section ids.
type KeywordRule struct {
	Term     string   `yaml:"term" json:"term"`
	Sections []string `yaml:"sections" json:"sections"`
}

// SectionKind tags the variant a SectionRef points at.
type SectionKind string

const (
	KindDay         SectionKind = "day"
	KindLocation    SectionKind = "location"
	KindParking     SectionKind = "parking"
	KindReservation SectionKind = "reservation"
	KindInfo        SectionKind = "info"
)

// collection ids address a whole kind rather than a single entry.
var collections = map[string]SectionKind{
	"days":         KindDay,
	"locations":    KindLocation,
	"parking":      KindParking,
	"reservations": KindReservation,
}

// SectionRef is one resolved keyword target. An empty ID means the whole collection.
type SectionRef struct {
	Kind SectionKind `json:"kind"`
	ID   string      `json:"id,omitempty"`
}

// DefaultDataset decodes the embedded dataset.
func DefaultDataset() (*Dataset, error) {
	return ParseDataset(defaultDatasetYAML)
}

// LoadDataset reads the dataset from path, or the embedded default when path is empty.
func LoadDataset(path string) (*Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultDataset()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workshop: read dataset %s: %w", path, err)
	}
	return ParseDataset(raw)
}

// ParseDataset decodes and validates a YAML dataset. Days are sorted chronologically.
func ParseDataset(raw []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("workshop: decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate parses day dates, checks links and keyword targets.
func (ds *Dataset) Validate() error {
	if len(ds.Days) == 0 {
		return errors.New("workshop: dataset has no days")
	}
	seen := make(map[string]bool, len(ds.Days))
	for i := range ds.Days {
		day := &ds.Days[i]
		if day.Key == "" {
			return fmt.Errorf("workshop: day %d has no key", i)
		}
		if seen[day.Key] {
			return fmt.Errorf("workshop: duplicate day %q", day.Key)
		}
		seen[day.Key] = true
		civil, err := time.Parse(dateLayout, day.Date)
		if err != nil {
			return fmt.Errorf("workshop: day %s: invalid date %q: %w", day.Key, day.Date, err)
		}
		day.civil = civil
		for _, item := range day.Schedule {
			if item.Maps != "" {
				if err := checkLink(item.Maps); err != nil {
					return fmt.Errorf("workshop: day %s %q: %w", day.Key, item.Activity, err)
				}
			}
		}
	}
	sort.SliceStable(ds.Days, func(i, j int) bool { return ds.Days[i].civil.Before(ds.Days[j].civil) })

	for _, group := range [][]Location{ds.Locations, ds.Parking} {
		for _, loc := range group {
			if err := checkLink(loc.Maps); err != nil {
				return fmt.Errorf("workshop: location %s (%s): %w", loc.ID, loc.Name, err)
			}
		}
	}
	for _, rule := range ds.Keywords {
		for _, id := range rule.Sections {
			if len(ds.resolve(id)) == 0 {
				return fmt.Errorf("workshop: keyword %q points at unknown section %q", rule.Term, id)
			}
		}
	}
	return nil
}

func checkLink(raw string) error {
	if strings.ContainsAny(raw, "[]") {
		return fmt.Errorf("link %q contains a placeholder", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("link %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("link %q is not an absolute http(s) URL", raw)
	}
	return nil
}

// FirstDay and LastDay bound the event.
func (ds *Dataset) FirstDay() Day { return ds.Days[0] }
func (ds *Dataset) LastDay() Day  { return ds.Days[len(ds.Days)-1] }

// DayByDate returns the event day for a "DD.MM.YYYY" date.
func (ds *Dataset) DayByDate(date string) (Day, bool) {
	for _, d := range ds.Days {
		if d.Date == date {
			return d, true
		}
	}
	return Day{}, false
}

// Lookup resolves a term from the keyword table. Matching is case-insensitive on the whole term.
func (ds *Dataset) Lookup(term string) []SectionRef {
	term = strings.ToLower(strings.TrimSpace(term))
	for _, rule := range ds.Keywords {
		if strings.ToLower(rule.Term) != term {
			continue
		}
		var refs []SectionRef
		for _, id := range rule.Sections {
			refs = append(refs, ds.resolve(id)...)
		}
		return refs
	}
	return nil
}

// Match returns every keyword rule whose term occurs in text.
func (ds *Dataset) Match(text string) []KeywordRule {
	text = strings.ToLower(text)
	var out []KeywordRule
	for _, rule := range ds.Keywords {
		if strings.Contains(text, strings.ToLower(rule.Term)) {
			out = append(out, rule)
		}
	}
	return out
}

func (ds *Dataset) resolve(id string) []SectionRef {
	if kind, ok := collections[id]; ok {
		return []SectionRef{{Kind: kind}}
	}
	var refs []SectionRef
	for _, d := range ds.Days {
		if d.Key == id {
			refs = append(refs, SectionRef{Kind: KindDay, ID: id})
		}
	}
	for _, l := range ds.Locations {
		if l.ID == id {
			refs = append(refs, SectionRef{Kind: KindLocation, ID: id})
			break
		}
	}
	for _, p := range ds.Parking {
		if p.ID == id {
			refs = append(refs, SectionRef{Kind: KindParking, ID: id})
			break
		}
	}
	for _, r := range ds.Reservations {
		if r.ID == id {
			refs = append(refs, SectionRef{Kind: KindReservation, ID: id})
		}
	}
	for _, s := range ds.Info {
		if s.ID == id {
			refs = append(refs, SectionRef{Kind: KindInfo, ID: id})
		}
	}
	return refs
}

// MapLink is a named, fully-qualified maps URL.
type MapLink struct {
	Name string
	URL  string
}

// MapLinks lists every location and parking link, deduplicated by URL, in dataset order.
func (ds *Dataset) MapLinks() []MapLink {
	var links []MapLink
	seen := make(map[string]bool)
	for _, group := range [][]Location{ds.Locations, ds.Parking} {
		for _, loc := range group {
			if loc.Maps == "" || seen[loc.Maps] {
				continue
			}
			seen[loc.Maps] = true
			links = append(links, MapLink{Name: loc.Name, URL: loc.Maps})
		}
	}
	return links
}

// Location returns the venue with id.
func (ds *Dataset) Location(id string) (Location, bool) {
	for _, l := range ds.Locations {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}

// ParkingFor returns every parking option serving venue id, in dataset order.
func (ds *Dataset) ParkingFor(id string) []Location {
	var out []Location
	for _, p := range ds.Parking {
		if p.ID == id {
			out = append(out, p)
		}
	}
	return out
}
