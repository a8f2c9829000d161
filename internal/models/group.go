package models

// Group is an expense-splitting group.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Title is the display name of the group (e.g., "Roommates").
	Title string `json:"title"`

	// OwnerID is the user who created the group.
	OwnerID string `json:"ownerId,omitempty"`

	// Members lists the group's members in insertion order.
	// Matrix rows and columns follow this order.
	Members []Member `json:"members"`

	// Balance is the net balance of the member requested when listing
	// groups. Positive means the others owe that member.
	Balance float64 `json:"balance"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"createdAt"`
}

// Member is a participant of exactly one group.
type Member struct {
	ID      string `json:"id"`
	GroupID string `json:"groupId,omitempty"`
	Name    string `json:"name"`

	// Position orders members within their group.
	Position int `json:"-"`
}

// Debt is a directed pairwise balance: From owes To the Amount.
type Debt struct {
	FromMemberID   string  `json:"fromMemberId"`
	FromMemberName string  `json:"fromMemberName,omitempty"`
	ToMemberID     string  `json:"toMemberId"`
	ToMemberName   string  `json:"toMemberName,omitempty"`
	Amount         float64 `json:"amount"`
}

// SplitType selects how a transaction total is divided among members.
type SplitType string

const (
	SplitEqual      SplitType = "Equal"
	SplitPercentage SplitType = "Percentage"
	SplitDynamic    SplitType = "Dynamic"
)

// Valid reports whether t is a known split type.
func (t SplitType) Valid() bool {
	switch t {
	case SplitEqual, SplitPercentage, SplitDynamic:
		return true
	}
	return false
}

// Split is one member's share of a transaction.
type Split struct {
	MemberID string  `json:"memberId"`
	Value    float64 `json:"value"`
}

// Transaction is a payment made by one member and split among members.
type Transaction struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"groupId"`
	PayerID     string    `json:"payerId"`
	PayerName   string    `json:"payerName,omitempty"`
	TotalAmount float64   `json:"totalAmount"`
	SplitType   SplitType `json:"splitType"`
	Splits      []Split   `json:"splits,omitempty"`

	// Date is the Unix timestamp of the transaction.
	Date int64 `json:"date"`
}
