package activity

import (
	"fmt"
	"strings"
)

// MarshalFragment renders one record as a YAML list-item fragment that
// can be appended directly beneath existing entries of a category file.
// No document markers are emitted. Deadline and comment values are
// single-quoted to keep timestamps and free text unambiguous; every
// other scalar is emitted bare, matching the dataset's on-disk style.
//
// The record is assumed to be validated already; this is a pure
// formatting function.
func MarshalFragment(rec *Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "- title: %s\n", rec.Title)
	fmt.Fprintf(&b, "  description: %s\n", rec.Description)
	fmt.Fprintf(&b, "  category: %s\n", rec.Category)
	b.WriteString("  tags:\n")
	for _, tag := range rec.Tags {
		fmt.Fprintf(&b, "    - %s\n", tag)
	}
	b.WriteString("  events:\n")
	for _, ev := range rec.Events {
		fmt.Fprintf(&b, "    - year: %d\n", ev.Year)
		fmt.Fprintf(&b, "      id: %s\n", ev.ID)
		fmt.Fprintf(&b, "      link: %s\n", ev.Link)
		b.WriteString("      timeline:\n")
		for _, d := range ev.Timeline {
			fmt.Fprintf(&b, "        - deadline: '%s'\n", quoteEscape(d.Deadline))
			fmt.Fprintf(&b, "          comment: '%s'\n", quoteEscape(d.Comment))
		}
		fmt.Fprintf(&b, "      timezone: %s\n", ev.Timezone)
		fmt.Fprintf(&b, "      date: %s\n", ev.Date)
		fmt.Fprintf(&b, "      place: %s\n", ev.Place)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// quoteEscape doubles single quotes per YAML single-quoted scalar rules.
func quoteEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
