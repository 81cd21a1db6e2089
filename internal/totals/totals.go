// Package totals computes the HT / TVA / TTC amounts of an intervention.
// The same function backs the live preview of a form being edited and the
// authoritative computation done once when a record is created.
package totals

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iliyamo/field-interventions/internal/model"
)

var (
	// ErrNoLineItems is returned for an empty line-item list.
	ErrNoLineItems = errors.New("at least one line item is required")
	// ErrInvalidLineItem is returned when a line fails its input constraints.
	ErrInvalidLineItem = errors.New("invalid line item")
	// ErrInvalidTaxRate is returned for a rate outside [0, 100].
	ErrInvalidTaxRate = errors.New("tax rate must be between 0 and 100")
	// ErrNonPositiveTotal is returned when the excl. tax sum, rounded to
	// cents, is not > 0.
	ErrNonPositiveTotal = errors.New("amount excluding tax must be greater than zero")
	// ErrAmountTooLarge is returned when a total does not fit MaxAmount.
	ErrAmountTooLarge = errors.New("amount exceeds the maximum of 999999999.99")
)

// MaxAmount is the largest amount a record can carry (DECIMAL(12,2)).
const MaxAmount = 999_999_999.99

// LineError identifies the offending line of an ErrInvalidLineItem.
type LineError struct {
	Index  int
	Field  string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s %s", e.Index+1, e.Field, e.Reason)
}

func (e *LineError) Unwrap() error { return ErrInvalidLineItem }

// Compute returns the totals of items at taxRatePercent.  The sum is kept
// unrounded until the final amounts are produced.
func Compute(items []model.LineItem, taxRatePercent float64) (model.Totals, error) {
	if len(items) == 0 {
		return model.Totals{}, ErrNoLineItems
	}
	if err := CheckTaxRate(taxRatePercent); err != nil {
		return model.Totals{}, err
	}
	var ht float64
	for i, it := range items {
		if err := checkLine(i, it); err != nil {
			return model.Totals{}, err
		}
		ht += it.Quantity * it.UnitPrice
	}
	if math.IsInf(ht, 0) || ht > MaxAmount {
		return model.Totals{}, ErrAmountTooLarge
	}
	excl := Round2(ht)
	if excl <= 0 {
		return model.Totals{}, ErrNonPositiveTotal
	}
	tva := Round2(ht * taxRatePercent / 100)
	t := model.Totals{
		AmountExclTax: excl,
		TaxAmount:     tva,
		AmountInclTax: Round2(excl + tva),
	}
	if t.AmountInclTax > MaxAmount {
		return model.Totals{}, ErrAmountTooLarge
	}
	return t, nil
}

// CheckTaxRate accepts finite rates in [0, 100] with at most two decimals,
// the precision the rate is stored with.
func CheckTaxRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 100 {
		return ErrInvalidTaxRate
	}
	if math.Abs(rate*100-math.Round(rate*100)) > 1e-6 {
		return fmt.Errorf("%w: at most two decimals", ErrInvalidTaxRate)
	}
	return nil
}

func checkLine(i int, it model.LineItem) error {
	switch {
	case strings.TrimSpace(it.Label) == "":
		return &LineError{Index: i, Field: "label", Reason: "is required"}
	case math.IsNaN(it.Quantity) || math.IsInf(it.Quantity, 0) || it.Quantity <= 0:
		return &LineError{Index: i, Field: "quantity", Reason: "must be greater than zero"}
	case math.IsNaN(it.UnitPrice) || math.IsInf(it.UnitPrice, 0) || it.UnitPrice < 0:
		return &LineError{Index: i, Field: "unit_price", Reason: "must not be negative"}
	}
	return nil
}

// Round2 rounds half away from zero to two decimal places.  The small
// epsilon absorbs binary representation error (1.005 is stored as
// 1.00499999...).
func Round2(v float64) float64 {
	return math.Round(v*100+math.Copysign(1e-9, v)) / 100
}
