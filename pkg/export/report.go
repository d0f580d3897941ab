package export

import "time"

// Section is a titled block of rows. Rows are keyed by column header.
type Section struct {
	Title string
	Rows  []map[string]string
}

// Report is tabular export content split into sections sharing one header row.
type Report struct {
	Title       string
	Subtitle    string
	Headers     []string
	Sections    []Section
	GeneratedAt time.Time
}

// RowCount returns the number of rows across all sections.
func (r Report) RowCount() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Rows)
	}
	return n
}

// GroupBy converts items to rows and splits them into sections in first-seen order of key.
func GroupBy[T any](items []T, key func(T) string, row func(T) map[string]string) []Section {
	index := make(map[string]int)
	sections := make([]Section, 0)
	for _, item := range items {
		k := key(item)
		i, ok := index[k]
		if !ok {
			i = len(sections)
			index[k] = i
			sections = append(sections, Section{Title: k})
		}
		sections[i].Rows = append(sections[i].Rows, row(item))
	}
	return sections
}
