package models

// LendingType tells whether money went out or came in.
type LendingType string

const (
	Lent     LendingType = "lent"
	Borrowed LendingType = "borrowed"
)

// LendingStatus tracks whether a loan is still open.
type LendingStatus string

const (
	StatusActive LendingStatus = "active"
	StatusRepaid LendingStatus = "repaid"
)

// Lending is money lent to or borrowed from someone.
type Lending struct {
	ID            string        `json:"id"`
	Date          string        `json:"date"` // YYYY-MM-DD
	PersonName    string        `json:"personName"`
	Amount        float64       `json:"amount"`
	Description   string        `json:"description,omitempty"`
	Type          LendingType   `json:"type"`
	Status        LendingStatus `json:"status"`
	RepaymentDate string        `json:"repaymentDate,omitempty"`
}

// LendingData is the persisted lending collection.
type LendingData struct {
	UserID   string    `json:"userId"`
	Lendings []Lending `json:"lendings"`
}

// NewLendingData returns an empty collection owned by userID.
func NewLendingData(userID string) LendingData {
	return LendingData{UserID: userID, Lendings: []Lending{}}
}

// Clone returns a deep copy of d.
func (d LendingData) Clone() LendingData {
	out := LendingData{UserID: d.UserID, Lendings: make([]Lending, len(d.Lendings))}
	copy(out.Lendings, d.Lendings)
	return out
}
