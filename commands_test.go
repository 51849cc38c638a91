package kkt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaleRejectsOutOfRangePrice(t *testing.T) {
	s := NewSession(Config{Port: "unused"})
	_, err := s.Sale(1, 10_000_000_000.00, 1, Taxes{}, "item")
	assert.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSaleAcceptsBoundaryPrice(t *testing.T) {
	// Validation must pass for the boundary value itself; Sale only fails
	// past this point when it tries to reach a (nonexistent) device, which
	// surfaces as a *ConnectionError, not a *ValidationError.
	s := NewSession(Config{Port: "unused"})
	_, err := s.Sale(1, 99_999_999.99, 1, Taxes{}, "item")
	_, ok := err.(*ValidationError)
	assert.False(t, ok, "boundary price must not be rejected by validation")
}

func TestCloseReceiptRejectsOutOfRangeDiscount(t *testing.T) {
	s := NewSession(Config{Port: "unused"})
	_, err := s.CloseReceipt([4]float64{100, 0, 0, 0}, 100.00, Taxes{}, "total")
	assert.Error(t, err)
	_, ok := err.(*ValidationError)
	assert.True(t, ok)
}

func TestCloseReceiptAcceptsBoundaryDiscount(t *testing.T) {
	s := NewSession(Config{Port: "unused"})
	_, err := s.CloseReceipt([4]float64{100, 0, 0, 0}, 99.99, Taxes{}, "total")
	_, ok := err.(*ValidationError)
	assert.False(t, ok)
}

func TestLineItemRejectsInvalidTax(t *testing.T) {
	s := NewSession(Config{Port: "unused"})
	_, err := s.Sale(1, 1, 1, Taxes{5, 0, 0, 0}, "item")
	assert.Error(t, err)
}

func TestOpenReceiptRejectsInvalidDocType(t *testing.T) {
	s := NewSession(Config{Port: "unused"})
	_, err := s.OpenReceipt(4)
	assert.Error(t, err)
}

func TestOpenReceiptAcceptsEveryValidDocType(t *testing.T) {
	for _, dt := range []byte{DocSale, DocPurchase, DocReturnSale, DocReturnPurchase} {
		assert.NoError(t, validateDocType(dt))
	}
}

func TestExtendedCloseRejectsOutOfRangeDiscountPercent(t *testing.T) {
	s := NewSession(Config{Port: "unused"})
	var payments [16]float64
	_, err := s.ExtendedClose(payments, 10000, Taxes{}, "text")
	assert.Error(t, err)
}
