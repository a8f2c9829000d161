package ledger

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/meniumate/internal/models"
)

// epsilon hides floating point noise when netting pairwise amounts.
const epsilon = 0.005

// PairwiseDebts derives the directed debts of a group from its transactions
// and settlements.
//
// Algorithm:
//   - For each transaction: every split member other than the payer owes the
//     payer their split value
//   - For each settlement: the receiver is treated as owing the payer the
//     settled amount, which cancels the settled debt when netted
//   - For each member pair only the net direction is reported
//
// Debts are returned in member order of the debtor, then the creditor.
// Entries naming a non-member are ignored.
func PairwiseDebts(members []models.Member, txs []models.Transaction, settlements []models.Settlement) []models.Debt {
	index := make(map[string]int, len(members))
	for i, m := range members {
		index[m.ID] = i
	}

	// gross[debtor][creditor]
	gross := make([][]decimal.Decimal, len(members))
	for i := range gross {
		gross[i] = make([]decimal.Decimal, len(members))
	}
	add := func(from, to string, amount float64) {
		i, ok := index[from]
		if !ok {
			return
		}
		j, ok := index[to]
		if !ok || i == j {
			return
		}
		gross[i][j] = gross[i][j].Add(decimal.NewFromFloat(amount))
	}

	for _, tx := range txs {
		for _, s := range tx.Splits {
			add(s.MemberID, tx.PayerID, s.Value)
		}
	}
	for _, s := range settlements {
		add(s.ToMemberID, s.FromMemberID, s.Amount)
	}

	var debts []models.Debt
	for i := range members {
		for j := range members {
			if i == j {
				continue
			}
			net := gross[i][j].Sub(gross[j][i]).Round(2)
			if net.InexactFloat64() <= epsilon {
				continue
			}
			debts = append(debts, models.Debt{
				FromMemberID:   members[i].ID,
				FromMemberName: members[i].Name,
				ToMemberID:     members[j].ID,
				ToMemberName:   members[j].Name,
				Amount:         net.InexactFloat64(),
			})
		}
	}

	return debts
}

// NetOwed returns how much from currently owes to according to debts, or 0.
func NetOwed(debts []models.Debt, from, to string) float64 {
	for _, d := range debts {
		if d.FromMemberID == from && d.ToMemberID == to {
			return d.Amount
		}
	}
	return 0
}

// NetBalance returns the member's net position: what others owe the member
// minus what the member owes others. Positive means the member is owed.
func NetBalance(debts []models.Debt, memberID string) float64 {
	balance := decimal.Zero
	for _, d := range debts {
		switch memberID {
		case d.ToMemberID:
			balance = balance.Add(decimal.NewFromFloat(d.Amount))
		case d.FromMemberID:
			balance = balance.Sub(decimal.NewFromFloat(d.Amount))
		}
	}
	return balance.Round(2).InexactFloat64()
}

// BalanceLabel renders a member balance the way the group list shows it.
func BalanceLabel(balance float64) string {
	switch {
	case balance > 0:
		return fmt.Sprintf("They owe you: %.2f", balance)
	case balance < 0:
		return fmt.Sprintf("You owe: %.2f", math.Abs(balance))
	default:
		return "Settled up"
	}
}
