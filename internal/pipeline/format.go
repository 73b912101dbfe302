package pipeline

import (
	"fmt"

	"factbench/internal/format"
)

// tripletWidth bounds the triplet column of FormatTextMatch.
const tripletWidth = 80

// FormatTextMatch renders one row per answer triplet with its judgment.
// A triplet without a judgment is shown as "?".
func FormatTextMatch(m TextMatch, mode format.Mode) string {
	tbl := format.NewTable(mode, "#", "Answer triplet", "Supported").Right(1).Center(3)
	for i, t := range m.AnswerTriplets {
		mark := "?"
		if v, ok := m.FactCheck[i]; ok {
			mark = format.BoolMark(v)
		}
		tbl.Row(i, format.Truncate(t.String(), tripletWidth), mark)
	}
	tbl.Footer("", fmt.Sprintf("precision %.4f, %d reference triplets", m.FactCheck.Precision(), len(m.ReferenceTriplets)), "")
	return format.Section("", tbl)
}
