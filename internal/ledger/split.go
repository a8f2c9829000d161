package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/meniumate/internal/models"
)

// Tolerance is the largest accepted difference between a split sum and its
// target (100% or the transaction total).
var Tolerance = decimal.NewFromFloat(0.01)

var hundred = decimal.NewFromInt(100)

// SplitRequest describes a transaction before its splits are computed.
type SplitRequest struct {
	PayerID string
	Total   float64
	Type    models.SplitType

	// Percentages maps member ID to percentage, used by SplitPercentage.
	// Missing members count as 0%.
	Percentages map[string]float64

	// Amounts maps member ID to an explicit share, used by SplitDynamic.
	// Missing members count as 0.
	Amounts map[string]float64
}

// BuildSplits validates req against the group members and returns one split
// per member, in member order.
//
//   - Equal: total / N each
//   - Percentage: pct/100 × total, percentages must sum to 100
//   - Dynamic: explicit amounts, which must sum to the total
func BuildSplits(members []models.Member, req SplitRequest) ([]models.Split, error) {
	if len(members) == 0 {
		return nil, &models.ValidationError{Field: "members", Message: "group has no members"}
	}
	if req.PayerID == "" {
		return nil, &models.ValidationError{Field: "payerId", Message: "select who paid"}
	}
	if !hasMember(members, req.PayerID) {
		return nil, &models.ValidationError{Field: "payerId", Message: "payer must be a group member"}
	}
	if req.Total <= 0 {
		return nil, &models.ValidationError{Field: "totalAmount", Message: "enter a valid amount"}
	}

	total := decimal.NewFromFloat(req.Total)
	splits := make([]models.Split, len(members))

	switch req.Type {
	case models.SplitEqual:
		share := total.Div(decimal.NewFromInt(int64(len(members))))
		for i, m := range members {
			splits[i] = models.Split{MemberID: m.ID, Value: share.InexactFloat64()}
		}

	case models.SplitPercentage:
		sum := decimal.Zero
		for _, m := range members {
			sum = sum.Add(decimal.NewFromFloat(req.Percentages[m.ID]))
		}
		if sum.Sub(hundred).Abs().GreaterThan(Tolerance) {
			return nil, &models.ValidationError{
				Field:   "percentages",
				Message: fmt.Sprintf("percentages must sum to 100%%, got %s%%", sum.StringFixed(2)),
			}
		}
		for i, m := range members {
			pct := decimal.NewFromFloat(req.Percentages[m.ID])
			splits[i] = models.Split{MemberID: m.ID, Value: pct.Div(hundred).Mul(total).InexactFloat64()}
		}

	case models.SplitDynamic:
		sum := decimal.Zero
		for _, m := range members {
			sum = sum.Add(decimal.NewFromFloat(req.Amounts[m.ID]))
		}
		if sum.Sub(total).Abs().GreaterThan(Tolerance) {
			return nil, &models.ValidationError{
				Field:   "amounts",
				Message: fmt.Sprintf("amounts must sum to %s, got %s", total.StringFixed(2), sum.StringFixed(2)),
			}
		}
		for i, m := range members {
			splits[i] = models.Split{MemberID: m.ID, Value: req.Amounts[m.ID]}
		}

	default:
		return nil, &models.ValidationError{Field: "splitType", Message: fmt.Sprintf("unknown split type %q", req.Type)}
	}

	return splits, nil
}

// CheckTransaction validates a submitted transaction against the group
// members: known payer and split members, positive total, and splits summing
// to the total.
func CheckTransaction(members []models.Member, tx *models.Transaction) error {
	if !tx.SplitType.Valid() {
		return &models.ValidationError{Field: "splitType", Message: fmt.Sprintf("unknown split type %q", tx.SplitType)}
	}
	if tx.TotalAmount <= 0 {
		return &models.ValidationError{Field: "totalAmount", Message: "must be greater than zero"}
	}
	if !hasMember(members, tx.PayerID) {
		return &models.ValidationError{Field: "payerId", Message: "payer must be a group member"}
	}
	if len(tx.Splits) == 0 {
		return &models.ValidationError{Field: "splits", Message: "at least one split is required"}
	}

	sum := decimal.Zero
	for _, s := range tx.Splits {
		if !hasMember(members, s.MemberID) {
			return &models.ValidationError{Field: "splits", Message: fmt.Sprintf("member %s is not in the group", s.MemberID)}
		}
		if s.Value < 0 {
			return &models.ValidationError{Field: "splits", Message: "split values cannot be negative"}
		}
		sum = sum.Add(decimal.NewFromFloat(s.Value))
	}
	if sum.Sub(decimal.NewFromFloat(tx.TotalAmount)).Abs().GreaterThan(Tolerance) {
		return &models.ValidationError{Field: "splits", Message: "splits must sum to the total amount"}
	}
	return nil
}

func hasMember(members []models.Member, id string) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}
