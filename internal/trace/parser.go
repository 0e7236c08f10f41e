package trace

import (
	"fmt"
	"regexp"
	"strings"
)

// RecordKind classifies a parsed diagnostic line.
type RecordKind string

const (
	KindInvoke RecordKind = "invoke"
	KindEffect RecordKind = "effect"
	KindEvent  RecordKind = "event"
)

// InvocationRecord is the parsed representation of one diagnostic line.
// The ordered record list encodes an implicit call forest: ParentIndex points
// into the same list, -1 marks a root. For effect records ContractRef holds
// the asset token, FunctionName the action verb and ArgsText the amount.
type InvocationRecord struct {
	ID           string     `json:"id"`
	Level        int        `json:"level"`
	ParentIndex  int        `json:"parent_index"`
	ContractRef  string     `json:"contract_ref"`
	FunctionName string     `json:"function_name"`
	ArgsText     string     `json:"args_text,omitempty"`
	ResultText   string     `json:"result_text,omitempty"`
	Kind         RecordKind `json:"kind"`
}

// lineRule pairs a pattern with a constructor. Rules are tried in order
// against every line; the first match wins, lines matching none are skipped.
type lineRule struct {
	pattern *regexp.Regexp
	build   func(m []string, prev *InvocationRecord, prevIndex int) *InvocationRecord
}

var rules = []lineRule{
	// Top-level invocation: "GABC... invoked contract CABC... swap(100, 50) → 48"
	{
		pattern: regexp.MustCompile(`^(\S+) invoked contract (\S+) ([\w.]+)\((.*?)\)(?:\s*(?:→|->)\s*(.+))?\s*$`),
		build: func(m []string, _ *InvocationRecord, _ int) *InvocationRecord {
			return &InvocationRecord{
				Level:        0,
				ParentIndex:  -1,
				ContractRef:  m[2],
				FunctionName: m[3],
				ArgsText:     m[4],
				ResultText:   strings.TrimSpace(m[5]),
				Kind:         KindInvoke,
			}
		},
	},
	// Nested invocation: " Invoked contract CDEF... transfer(A, B, 100)"
	{
		pattern: regexp.MustCompile(`^(\s+)Invoked contract (\S+) ([\w.]+)\((.*?)\)(?:\s*(?:→|->)\s*(.+))?\s*$`),
		build: func(m []string, prev *InvocationRecord, prevIndex int) *InvocationRecord {
			rec := &InvocationRecord{
				Level:        indentLevel(m[1], prev),
				ParentIndex:  prevIndex,
				ContractRef:  m[2],
				FunctionName: m[3],
				ArgsText:     m[4],
				ResultText:   strings.TrimSpace(m[5]),
				Kind:         KindInvoke,
			}
			if prev == nil {
				// A nested line with no caller in sight is treated as a root.
				rec.Level = 0
				rec.ParentIndex = -1
			}
			return rec
		},
	},
	// Effect: " 100.5 USDC transferred from A to B"
	{
		pattern: regexp.MustCompile(`^(\s+)([\d][\d.,]*) (\S+) (minted|credited|transferred|burned)\b.*$`),
		build: func(m []string, prev *InvocationRecord, prevIndex int) *InvocationRecord {
			rec := &InvocationRecord{
				Level:        indentLevel(m[1], prev),
				ParentIndex:  prevIndex,
				ContractRef:  m[3],
				FunctionName: m[4],
				ArgsText:     m[2],
				Kind:         KindEffect,
			}
			if prev == nil {
				rec.Level = 0
				rec.ParentIndex = -1
			}
			return rec
		},
	},
	// Event: "Contract CABC... raised event"; recognized so the line is not
	// misread by later rules, excluded from the returned records.
	{
		pattern: regexp.MustCompile(`^\s*Contract (\S+) raised event\b.*$`),
		build: func(m []string, _ *InvocationRecord, _ int) *InvocationRecord {
			return &InvocationRecord{ContractRef: m[1], Kind: KindEvent}
		},
	},
}

// Parse converts ordered diagnostic lines into an ordered record list.
// It never fails: unmatched lines are skipped and a fully unmatched input
// yields an empty slice, which callers treat as "no hierarchical data".
// Event records are recognized but dropped from the result.
func Parse(lines []string) []InvocationRecord {
	var records []InvocationRecord

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var prev *InvocationRecord
		prevIndex := -1
		if n := len(records); n > 0 {
			prev = &records[n-1]
			prevIndex = n - 1
		}

		for _, rule := range rules {
			m := rule.pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			rec := rule.build(m, prev, prevIndex)
			if rec.Kind == KindEvent {
				break
			}
			rec.ID = recordID(rec.Kind, len(records))
			records = append(records, *rec)
			break
		}
	}

	return records
}

// indentLevel derives nesting depth from a leading whitespace run.
// Depth is the indent length plus one, clamped so a record is never more
// than one level below the record it is attached to.
func indentLevel(indent string, prev *InvocationRecord) int {
	level := len([]rune(indent)) + 1
	if prev != nil && level > prev.Level+1 {
		level = prev.Level + 1
	}
	return level
}

// recordID synthesizes a stable sequential ID for a parsed record.
func recordID(kind RecordKind, seq int) string {
	if kind == KindEffect {
		return fmt.Sprintf("effect-%d", seq)
	}
	return fmt.Sprintf("call-%d", seq)
}
