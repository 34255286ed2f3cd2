// Package ranks models ranked identifier lists, the input of a
// values/ranks enrichment run.
package ranks

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one line of a rank list: an identifier and its rank value.
type Row struct {
	Identifier string
	Value      float64
}

// List is a rank list, ordered as read.
//
// Lists are value tables, not sets. Do not mutate a List after
// handing it to a Set.
type List []Row

// ParseTSV reads tab-separated "identifier<TAB>value" lines.
//
// Blank lines are skipped. There is no header line.
func ParseTSV(text string) (List, error) {
	rows := List{}
	for nth, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			return nil, fmt.Errorf(
				"line %d: should have 2 tab-separated columns, has %d", nth+1, len(parts),
			)
		}

		identifier := strings.TrimSpace(parts[0])
		if identifier == "" {
			return nil, fmt.Errorf("line %d: empty identifier", nth+1)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: value %q is not numeric", nth+1, parts[1])
		}

		rows = append(rows, Row{Identifier: identifier, Value: value})
	}
	return rows, nil
}

// TSV renders the list back to "identifier<TAB>value" lines,
// one row per line, trailing newline, no header.
func (l List) TSV() string {
	b := strings.Builder{}
	for _, row := range l {
		b.WriteString(row.Identifier)
		b.WriteString("\t")
		b.WriteString(strconv.FormatFloat(row.Value, 'g', -1, 64))
		b.WriteString("\n")
	}
	return b.String()
}

func (l List) Len() int {
	return len(l)
}

func (l List) Equal(o List) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}
