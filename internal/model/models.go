package model

// -------------------- IDENTITY --------------------

// UserProfile is the identity captured at login. Email keys every per-user
// partition in durable storage.
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// -------------------- TRANSACTIONS --------------------

type TransactionStatus string

const (
	StatusActive   TransactionStatus = "ACTIVE"
	StatusExpired  TransactionStatus = "EXPIRED"
	StatusUsed     TransactionStatus = "USED"
	StatusRefunded TransactionStatus = "REFUNDED"
)

// CardTransaction is one issued virtual card. AmountInr is fixed at creation
// and never recomputed.
type CardTransaction struct {
	ID            string            `json:"id"`
	Platform      string            `json:"platform"`
	AmountUsd     float64           `json:"amountUsd"`
	AmountInr     int64             `json:"amountInr"`
	AmountBaseInr int64             `json:"amountBaseInr,omitempty"`
	FeeInr        int64             `json:"feeInr,omitempty"`
	Timestamp     int64             `json:"timestamp"` // epoch ms
	Status        TransactionStatus `json:"status"`
	CardNumber    string            `json:"cardNumber"`
	Expiry        string            `json:"expiry"`
	CVV           string            `json:"cvv"`
	Color         string            `json:"color"`
	Network       string            `json:"network"`
	Bank          string            `json:"bank"`
}

// Session is the per-user working state: at most one active card and the
// history ledger, newest first.
type Session struct {
	ActiveCard *CardTransaction  `json:"activeCard"`
	History    []CardTransaction `json:"history"`
}

// CreateCardRequest carries the selections made on the create page.
type CreateCardRequest struct {
	Platform  string  `json:"platform"`
	Network   string  `json:"network"`
	Bank      string  `json:"bank"`
	AmountUsd float64 `json:"amountUsd"`
	Color     string  `json:"color"`
}

// -------------------- VIEWS --------------------

type RefundPhase string

const (
	RefundNone       RefundPhase = "NONE"
	RefundProcessing RefundPhase = "PROCESSING"
	RefundDone       RefundPhase = "DONE"
)

// CountdownView is the read-only projection of a presented active card.
type CountdownView struct {
	TransactionID    string      `json:"transactionId"`
	SecondsRemaining int         `json:"secondsRemaining"`
	Display          string      `json:"display"` // mm:ss
	ProgressPercent  float64     `json:"progressPercent"`
	Critical         bool        `json:"critical"`
	Expired          bool        `json:"expired"`
	RefundPhase      RefundPhase `json:"refundPhase"`
}

type Quote struct {
	AmountUsd float64 `json:"amountUsd"`
	Rate      string  `json:"rate"`
	BaseInr   int64   `json:"baseInr"`
	FeeInr    int64   `json:"feeInr"`
	TotalInr  int64   `json:"totalInr"`
}

// PaymentIntent is the mocked UPI request shown before confirmation.
type PaymentIntent struct {
	TransactionID string   `json:"transactionId"`
	Payee         string   `json:"payee"`
	PayeeName     string   `json:"payeeName"`
	AmountInr     int64    `json:"amountInr"`
	URI           string   `json:"uri"`
	QRMatrix      [][]bool `json:"qrMatrix"`
}

type ChartPoint struct {
	Platform  string  `json:"platform"`
	AmountUsd float64 `json:"amountUsd"`
}

type DashboardSummary struct {
	TotalSpentInr int64        `json:"totalSpentInr"`
	CardCount     int          `json:"cardCount"`
	ActiveCount   int          `json:"activeCount"`
	Recent        []ChartPoint `json:"recent"`
}

// SessionSnapshot is what the session endpoint returns.
type SessionSnapshot struct {
	User       *UserProfile      `json:"user"`
	IntroSeen  bool              `json:"introSeen"`
	ActiveCard *CardTransaction  `json:"activeCard"`
	History    []CardTransaction `json:"history"`
}
