// Package reconcile projects ledger state into the grouped rows consumed by
// the external financial pull.
package reconcile

import (
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/types"
)

// Row is one externally-consumable reconciliation line: all fees sharing a
// (code, natural account code) key folded into summed amounts.
//
// AllocatedAmount is the externally-facing "apportioned payment" figure.
// MemoLine keeps the last member's value (one memo line per code by
// convention); when members disagree, MemoLineConflict is set and MemoLines
// carries every distinct value in first-seen order so nothing is silently
// dropped.
type Row struct {
	Code               string      `json:"code"`
	NaturalAccountCode string      `json:"natural_account_code"`
	CalculatedAmount   types.Money `json:"calculated_amount"`
	AllocatedAmount    types.Money `json:"allocated_amount"`
	Volume             int64       `json:"volume"`
	MemoLine           string      `json:"memo_line"`
	MemoLines          []string    `json:"memo_lines,omitempty"`
	MemoLineConflict   bool        `json:"memo_line_conflict,omitempty"`
}

type groupKey struct {
	code               string
	naturalAccountCode string
}

// Aggregate groups fees by (code, natural account code) and sums their
// calculated amounts, allocated amounts and volumes. It is pure and
// read-only.
//
// Absent amounts are treated as zero; a well-formed but partially-populated
// fee never causes a failure. Rows appear in the order their group key was
// first encountered, so output is stable relative to input order.
func Aggregate(fees []*fee.Fee) []Row {
	currency := ""
	for _, f := range fees {
		if cur := f.Currency(); cur != "" {
			currency = cur
			break
		}
	}
	if currency == "" {
		currency = "gbp"
	}

	index := make(map[groupKey]int, len(fees))
	rows := make([]Row, 0, len(fees))

	for _, f := range fees {
		key := groupKey{code: f.Code, naturalAccountCode: f.NaturalAccountCode}

		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, Row{
				Code:               f.Code,
				NaturalAccountCode: f.NaturalAccountCode,
				CalculatedAmount:   types.Zero(currency),
				AllocatedAmount:    types.Zero(currency),
			})
		}

		row := &rows[i]
		row.CalculatedAmount = row.CalculatedAmount.AddAssuming(f.CalculatedAmount, currency)
		row.AllocatedAmount = row.AllocatedAmount.AddAssuming(f.AllocatedAmount, currency)
		row.Volume += f.Volume

		// Last member wins; distinct values are retained for conflict flagging.
		row.MemoLine = f.MemoLine
		if !contains(row.MemoLines, f.MemoLine) {
			row.MemoLines = append(row.MemoLines, f.MemoLine)
		}
	}

	for i := range rows {
		if len(rows[i].MemoLines) > 1 {
			rows[i].MemoLineConflict = true
		} else {
			rows[i].MemoLines = nil
		}
	}

	return rows
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
