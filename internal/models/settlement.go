package models

// Settlement represents a payment between group members to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string `json:"id"`

	// GroupID is the group this settlement belongs to.
	GroupID string `json:"groupId"`

	// FromMemberID is the member who paid (debtor settling up).
	FromMemberID string `json:"fromMemberId"`

	// ToMemberID is the member who received payment (creditor being paid).
	ToMemberID string `json:"toMemberId"`

	// Amount is the payment amount.
	Amount float64 `json:"amount"`

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64 `json:"createdAt"`

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string `json:"createdBy,omitempty"`
}
