// Package ledger holds the expense-group arithmetic: the pairwise debt
// matrix, transaction split building and debt derivation.
package ledger

import "github.com/mmynk/meniumate/internal/models"

// Matrix is a square table of pairwise owed amounts between group members.
// Cell [i][j] is what member i owes member j. Rows and columns follow the
// member order given to BuildMatrix. The diagonal is never populated.
type Matrix struct {
	members []models.Member
	index   map[string]int
	cells   [][]float64
}

// BuildMatrix builds a zero-initialised matrix sized to members and sets
// cell[row(from)][col(to)] for each debt. When the same (from, to) pair
// appears more than once the last entry wins. Debts naming a non-member or
// pointing a member at itself are ignored.
func BuildMatrix(members []models.Member, debts []models.Debt) *Matrix {
	m := &Matrix{
		members: members,
		index:   make(map[string]int, len(members)),
		cells:   make([][]float64, len(members)),
	}
	for i, member := range members {
		m.index[member.ID] = i
		m.cells[i] = make([]float64, len(members))
	}

	for _, d := range debts {
		from, ok := m.index[d.FromMemberID]
		if !ok {
			continue
		}
		to, ok := m.index[d.ToMemberID]
		if !ok || from == to {
			continue
		}
		m.cells[from][to] = d.Amount
	}

	return m
}

// Size returns the number of rows (and columns).
func (m *Matrix) Size() int {
	return len(m.members)
}

// Members returns the members in row order.
func (m *Matrix) Members() []models.Member {
	return m.members
}

// Index returns the row of the member with the given ID.
func (m *Matrix) Index(memberID string) (int, bool) {
	i, ok := m.index[memberID]
	return i, ok
}

// At returns what member i owes member j.
func (m *Matrix) At(i, j int) float64 {
	return m.cells[i][j]
}

// Rows returns a copy of the matrix cells.
func (m *Matrix) Rows() [][]float64 {
	rows := make([][]float64, len(m.cells))
	for i, row := range m.cells {
		rows[i] = append([]float64(nil), row...)
	}
	return rows
}

// Owes reports whether member i owes anyone a positive amount.
func (m *Matrix) Owes(i int) bool {
	for j := range m.cells {
		if i != j && m.cells[i][j] > 0 {
			return true
		}
	}
	return false
}

// IsOwed reports whether anyone owes member i a positive amount.
func (m *Matrix) IsOwed(i int) bool {
	for j := range m.cells {
		if i != j && m.cells[j][i] > 0 {
			return true
		}
	}
	return false
}

// Removable reports whether member i neither owes nor is owed anything.
func (m *Matrix) Removable(i int) bool {
	return !m.Owes(i) && !m.IsOwed(i)
}

// Eligibility maps each member ID to its removal eligibility.
func (m *Matrix) Eligibility() map[string]bool {
	out := make(map[string]bool, len(m.members))
	for i, member := range m.members {
		out[member.ID] = m.Removable(i)
	}
	return out
}
