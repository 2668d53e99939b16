package backend

import (
	"strings"

	"github.com/roach88/specbuilder/internal/ir"
)

// Render formats a finished record the way PrettyPrint shows it:
//
//	spec abs(x: int)
//	  requires x >= 0
//	  returns ret: int
//	  ensures ret == x // identity on non-negatives
func Render(rec ir.SpecRecord) string {
	var sb strings.Builder
	sb.WriteString("spec ")
	sb.WriteString(rec.Function)
	sb.WriteByte('(')
	for i, p := range rec.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeParam(&sb, p)
	}
	sb.WriteByte(')')

	writeClauses(&sb, "requires", rec.Assumes)
	sb.WriteString("\n  returns ")
	if rec.Return == nil || rec.Return.Type == unitType {
		sb.WriteString("()")
	} else {
		writeParam(&sb, *rec.Return)
	}
	writeClauses(&sb, "ensures", rec.Asserts)
	return sb.String()
}

func writeParam(sb *strings.Builder, p ir.Placeholder) {
	sb.WriteString(p.Name)
	sb.WriteString(": ")
	sb.WriteString(p.Type)
}

func writeClauses(sb *strings.Builder, keyword string, cs []ir.Clause) {
	for _, c := range cs {
		sb.WriteString("\n  ")
		sb.WriteString(keyword)
		sb.WriteByte(' ')
		sb.WriteString(c.Text)
		if c.Message != "" {
			sb.WriteString(" // ")
			sb.WriteString(c.Message)
		}
	}
}
