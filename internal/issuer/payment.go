package issuer

import (
	"net/url"
	"strconv"

	"github.com/spaolacci/murmur3"

	"vcard-service/internal/catalog"
	"vcard-service/internal/model"
)

const qrSize = 8

// NewPaymentIntent builds the mock UPI collect request for tx.
func NewPaymentIntent(tx model.CardTransaction) model.PaymentIntent {
	uri := upiURI(tx)
	return model.PaymentIntent{
		TransactionID: tx.ID,
		Payee:         catalog.UPIID,
		PayeeName:     catalog.UPIPayee,
		AmountInr:     tx.AmountInr,
		URI:           uri,
		QRMatrix:      qrMatrix(uri),
	}
}

func upiURI(tx model.CardTransaction) string {
	q := url.Values{}
	q.Set("pa", catalog.UPIID)
	q.Set("pn", catalog.UPIPayee)
	q.Set("am", strconv.FormatInt(tx.AmountInr, 10)+".00")
	q.Set("cu", "INR")
	q.Set("tr", tx.ID)
	return "upi://pay?" + q.Encode()
}

// qrMatrix is a decorative 8x8 pattern: one cell per bit of the murmur3
// hash of the payment URI. It is not a scannable QR code.
func qrMatrix(uri string) [][]bool {
	h := murmur3.Sum64([]byte(uri))
	m := make([][]bool, qrSize)
	for r := range m {
		m[r] = make([]bool, qrSize)
		for c := range m[r] {
			m[r][c] = h&(1<<uint(r*qrSize+c)) != 0
		}
	}
	return m
}
