package factura

import (
	"strings"
	"time"

	"github.com/panafact/fepa_backend/models"
	"github.com/panafact/fepa_backend/ninox"
	"github.com/panafact/fepa_backend/utils"
)

// Match records which of the three resolution predicates fired for one
// candidate line. The predicates are independent; a line is included when any
// of them holds. The per-predicate flags only exist for the diagnostics
// report.
type Match struct {
	Record    ninox.Record `json:"-"`
	Relation  bool         `json:"relation"`
	FieldName bool         `json:"fieldName"`
	Substring bool         `json:"substring"`
}

func (m Match) Included() bool {
	return m.Relation || m.FieldName || m.Substring
}

// ResolveLines determines which line records belong to the given invoice.
// Three tests, OR-combined:
//  1. a relation field carrying the invoice's record id (as a scalar, inside
//     a list, or as a nested object with an id-like key),
//  2. a field whose label mentions the invoice ("factura"/"invoice") and whose
//     value normalizes to the invoice's 8-digit number,
//  3. the 8-digit number appearing verbatim anywhere in the concatenated text
//     of the line's fields.
//
// The ambiguity is inherent to the source; this tolerates it rather than
// trying to resolve it definitively.
func ResolveLines(invoice models.Invoice, lines []ninox.Record) []Match {
	target := invoice.NormalizedNumber()
	invoiceId := strings.TrimSpace(invoice.Id)

	matches := make([]Match, 0, len(lines))
	for _, line := range lines {
		m := Match{Record: line}
		if invoiceId != "" {
			m.Relation = relationMatch(line, invoiceId)
		}
		if target != "" {
			m.FieldName = fieldNameMatch(line, target)
			m.Substring = substringMatch(line, target)
		}
		matches = append(matches, m)
	}
	return matches
}

// Included filters a match set down to the lines that belong to the invoice.
func Included(matches []Match) []ninox.Record {
	var records []ninox.Record
	for _, m := range matches {
		if m.Included() {
			records = append(records, m.Record)
		}
	}
	return records
}

func relationMatch(line ninox.Record, invoiceId string) bool {
	for _, value := range line.Fields {
		if valueReferences(value, invoiceId) {
			return true
		}
	}
	return false
}

func valueReferences(value ninox.Value, invoiceId string) bool {
	switch value.Kind {
	case ninox.ValueScalar:
		return strings.TrimSpace(value.Scalar) == invoiceId
	case ninox.ValueList:
		for _, elem := range value.List {
			if valueReferences(elem, invoiceId) {
				return true
			}
		}
		return false
	case ninox.ValueObject:
		id, ok := value.RelationId()
		return ok && id == invoiceId
	default:
		return false
	}
}

func fieldNameMatch(line ninox.Record, target string) bool {
	for name, value := range line.Fields {
		folded := foldName(name)
		if !strings.Contains(folded, "factura") && !strings.Contains(folded, "invoice") {
			continue
		}
		if models.NormalizeNumber(value.Text()) == target {
			return true
		}
	}
	return false
}

func substringMatch(line ninox.Record, target string) bool {
	var all strings.Builder
	for _, value := range line.Fields {
		all.WriteString(utils.CollapseWhitespace(value.Text()))
		all.WriteString(" ")
	}
	return strings.Contains(all.String(), target)
}

// ResolutionReport is the diagnostics view of one resolution pass: which
// predicate matched each fetched line. Held per session, overwritten on every
// invoice selection.
type ResolutionReport struct {
	InvoiceId     string            `json:"invoiceId"`
	InvoiceNumber string            `json:"invoiceNumber"`
	Normalized    string            `json:"normalizedNumber"`
	FetchedLines  int               `json:"fetchedLines"`
	MatchedLines  int               `json:"matchedLines"`
	Entries       []ResolutionEntry `json:"entries"`
	At            time.Time         `json:"at"`
}

type ResolutionEntry struct {
	RecordId  string `json:"recordId"`
	Relation  bool   `json:"relation"`
	FieldName bool   `json:"fieldName"`
	Substring bool   `json:"substring"`
	Included  bool   `json:"included"`
}

func BuildReport(invoice models.Invoice, matches []Match) *ResolutionReport {
	report := &ResolutionReport{
		InvoiceId:     invoice.Id,
		InvoiceNumber: invoice.Number,
		Normalized:    invoice.NormalizedNumber(),
		FetchedLines:  len(matches),
		At:            time.Now(),
	}
	for _, m := range matches {
		included := m.Included()
		if included {
			report.MatchedLines++
		}
		report.Entries = append(report.Entries, ResolutionEntry{
			RecordId:  m.Record.Id,
			Relation:  m.Relation,
			FieldName: m.FieldName,
			Substring: m.Substring,
			Included:  included,
		})
	}
	return report
}
