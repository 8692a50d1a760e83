package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wolfman30/workshop-concierge/internal/extensions"
	"github.com/wolfman30/workshop-concierge/internal/workshop"
)

const workshopRangeMarker = "{workshop_range}"

// BuildSystemPrompt assembles the instruction text for one completion call.
// Section order: persona, date and status, next-event lines, dataset, style and
// examples, extensions. The output depends only on its arguments.
func BuildSystemPrompt(p Persona, tc workshop.Context, exts []extensions.Extension, ds *workshop.Dataset) string {
	withData := p.IncludeWorkshopData && ds != nil && len(ds.Days) > 0

	var b strings.Builder
	desc := p.Description
	if withData {
		desc = strings.ReplaceAll(desc, workshopRangeMarker, dateRange(ds))
	}
	b.WriteString(desc)
	b.WriteString("\n\n")

	if !withData {
		b.WriteString("AKTUELLES DATUM UND ZEIT:\n")
		fmt.Fprintf(&b, "Heute ist: %s\n", tc.DateText)
		fmt.Fprintf(&b, "Aktuelle Uhrzeit: %s\n\n", tc.TimeText)
		b.WriteString(ExtensionsText(p, exts))
		return b.String()
	}

	writeTemporalBlock(&b, tc, ds)
	b.WriteString("\n\n")
	b.WriteString(franzTimeRules)
	if tc.NextItem != nil {
		b.WriteString("\n\n")
		b.WriteString(nextEventLine(*tc.NextItem))
	}
	b.WriteString("\n\nWORKSHOP-DATEN:\n")
	b.WriteString(datasetJSON(ds))
	b.WriteString("\n\n")

	if p.StyleGuide != "" {
		b.WriteString(p.StyleGuide)
		b.WriteString("\n\n")
	}
	writeMapLinks(&b, ds)
	writeLinkExamples(&b, ds)
	if p.Examples != "" {
		b.WriteString(p.Examples)
		b.WriteString("\n\n")
	}
	writeDateExamples(&b, tc, ds)
	b.WriteString("\n\n")
	b.WriteString(ExtensionsText(p, exts))
	return b.String()
}

// ExtensionsText renders the extensions block: a header plus one bullet per
// extension in stored order, or the persona's single placeholder line.
func ExtensionsText(p Persona, exts []extensions.Extension) string {
	if len(exts) == 0 {
		return p.NoExtensionsLine
	}
	var b strings.Builder
	b.WriteString(p.ExtensionsHeader)
	b.WriteString("\n")
	for _, ext := range exts {
		fmt.Fprintf(&b, "- %s (von %s)\n", ext.Content, ext.Winner)
	}
	return b.String()
}

// StatusText is the German workshop status line for tc.
func StatusText(tc workshop.Context, ds *workshop.Dataset) string {
	switch tc.Status {
	case workshop.StatusEventDay:
		return "HEUTE IST WORKSHOP-TAG: " + strings.ToUpper(tc.Today.Key)
	case workshop.StatusNotYetStarted:
		return fmt.Sprintf("WORKSHOP IST NOCH NICHT GESTARTET (beginnt am %s)", ds.FirstDay().Date)
	case workshop.StatusAlreadyEnded:
		return fmt.Sprintf("WORKSHOP IST BEREITS BEENDET (war vom %s)", dateRange(ds))
	default:
		return "ZWISCHEN WORKSHOP-TAGEN"
	}
}

func writeTemporalBlock(b *strings.Builder, tc workshop.Context, ds *workshop.Dataset) {
	b.WriteString("AKTUELLES DATUM UND ZEIT:\n")
	fmt.Fprintf(b, "Heute ist: %s\n", tc.DateText)
	fmt.Fprintf(b, "Aktuelle Uhrzeit: %s (Wien Zeit)\n", tc.TimeText)
	fmt.Fprintf(b, "Workshop-Status: %s\n", StatusText(tc, ds))

	if tc.Status == workshop.StatusEventDay {
		fmt.Fprintf(b, "HEUTE'S PROGRAMM (%s):", strings.ToUpper(tc.Today.Key))
		return
	}
	if tc.NextDay != nil {
		fmt.Fprintf(b, "NÄCHSTER WORKSHOP: %s (%s)\n", tc.NextDay.Date, strings.ToUpper(tc.NextDay.Key))
	} else {
		b.WriteString("NÄCHSTER WORKSHOP: Keine weiteren Workshop-Termine geplant.\n")
	}
	b.WriteString("KEIN WORKSHOP HEUTE - hier die nächsten Termine:\n")
	for i, d := range ds.Days {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "- %s: %s", strings.ToUpper(d.Key), d.Date)
	}
}

func nextEventLine(item workshop.ScheduleItem) string {
	line := fmt.Sprintf("NÄCHSTES EVENT HEUTE: %s - %s", item.Time, item.Activity)
	if item.Location != "" {
		line += fmt.Sprintf(" (%s)", item.Location)
	}
	return line
}

func datasetJSON(ds *workshop.Dataset) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeMapLinks(b *strings.Builder, ds *workshop.Dataset) {
	links := ds.MapLinks()
	if len(links) == 0 {
		return
	}
	b.WriteString("VERFÜGBARE MAPS-URLS (verwende diese direkt):\n")
	for _, l := range links {
		fmt.Fprintf(b, "- %s: %s\n", l.Name, l.URL)
	}
	b.WriteString("\n")
}

func writeLinkExamples(b *strings.Builder, ds *workshop.Dataset) {
	var examples []string
	if viva, ok := ds.Location("viva"); ok {
		examples = append(examples, fmt.Sprintf("Frage: \"wo ist viva la mamma?\"\nAntwort: \"Na servas! Die %s ist am %s. Hier der Weg, Euer Gnaden: %s 🍝\"",
			viva.Name, streetOf(viva.Address), viva.Maps))
	}
	if office, ok := ds.Location("openresearch"); ok {
		examples = append(examples, fmt.Sprintf("Frage: \"workshop adresse?\"\nAntwort: \"Des %s ist in der %s! Hier geht's hin: %s 👑\"",
			office.Name, streetOf(office.Address), office.Maps))
		if garages := ds.ParkingFor("openresearch"); len(garages) > 0 {
			examples = append(examples, fmt.Sprintf("Frage: \"wo kann ich beim workshop parken?\"\nAntwort: \"Für's %s empfehl ich die %s! Hier der Weg: %s 🚗\"",
				office.Name, garages[0].Name, garages[0].Maps))
		}
	}
	if spots := ds.ParkingFor("insel"); len(spots) >= 2 {
		examples = append(examples, fmt.Sprintf("Frage: \"wo parken für insel?\"\nAntwort: \"Für die Insel empfehl ich %s: %s oder %s: %s 🚗\"",
			spots[0].Name, spots[0].Maps, spots[1].Name, spots[1].Maps))
	}
	if len(examples) == 0 {
		return
	}
	b.WriteString("LINK-BEISPIELE:\n")
	b.WriteString(strings.Join(examples, "\n\n"))
	b.WriteString("\n\n")
}

func writeDateExamples(b *strings.Builder, tc workshop.Context, ds *workshop.Dataset) {
	b.WriteString("ANTWORT-BEISPIELE JE NACH DATUM:\n")
	b.WriteString("Frage: \"was machen wir heute?\"\n")
	for _, d := range ds.Days {
		item, ok := firstStart(d)
		if !ok {
			continue
		}
		fmt.Fprintf(b, "- Wenn heute %s (%s): \"Heute geht's los: %s %s...\"\n",
			workshop.GermanWeekday(d.CivilDate()), shortDate(d.Date), item.Time, item.Activity)
	}
	if tc.NextDay != nil {
		fmt.Fprintf(b, "- Wenn heute kein Workshop: \"Heute ist kein Workshop, aber am %s geht's weiter...\"\n", tc.NextDay.Date)
	} else {
		b.WriteString("- Wenn heute kein Workshop: \"Heute ist kein Workshop, und weitere Termine sind nicht geplant.\"\n")
	}

	b.WriteString("\nFrage: \"welcher tag ist heute?\"\n")
	if tc.Status == workshop.StatusEventDay {
		fmt.Fprintf(b, "Antwort: \"Heute ist %s. Das ist unser Workshop-%s!\"", tc.DateText, tc.Today.Key)
	} else {
		fmt.Fprintf(b, "Antwort: \"Heute ist %s. Kein Workshop heute.\"", tc.DateText)
	}
}

// firstStart is the first item with a clock time that is not an open-ended "bis" slot.
func firstStart(d workshop.Day) (workshop.ScheduleItem, bool) {
	for _, item := range d.Schedule {
		if _, ok := workshop.ItemMinutes(item); !ok {
			continue
		}
		if strings.HasPrefix(strings.ToLower(item.Time), "bis ") {
			continue
		}
		return item, true
	}
	return workshop.ScheduleItem{}, false
}

func dateRange(ds *workshop.Dataset) string {
	return shortDate(ds.FirstDay().Date) + "-" + ds.LastDay().Date
}

// shortDate turns "29.09.2025" into "29.09".
func shortDate(date string) string {
	if i := strings.LastIndex(date, "."); i > 0 {
		return date[:i]
	}
	return date
}

func streetOf(address string) string {
	street, _, _ := strings.Cut(address, ",")
	return street
}
