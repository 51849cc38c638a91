package kkt

import "fmt"

// Document type codes accepted by OpenReceipt.
const (
	DocSale           = 0
	DocPurchase       = 1
	DocReturnSale     = 2
	DocReturnPurchase = 3
)

const (
	minAmount int64 = 0
	maxAmount int64 = 9_999_999_999

	minDiscount int64 = -9999
	maxDiscount int64 = 9999
)

func validateAmount(name string, x float64) (int64, error) {
	v := M2I(x)
	if v < minAmount || v > maxAmount {
		return 0, validationErrf("%s %.2f out of range [0, %.2f]", name, x, I2M(maxAmount))
	}
	return v, nil
}

// validateCount bounds a quantity the same way validateAmount bounds a
// money value, but scales with C2I's 3 fractional digits instead of
// M2I's 2.
func validateCount(name string, x float64) (int64, error) {
	v := C2I(x)
	if v < minAmount || v > maxAmount {
		return 0, validationErrf("%s %.3f out of range [0, %.3f]", name, x, I2MD(maxAmount, 3))
	}
	return v, nil
}

func validateDiscount(name string, x float64) (int64, error) {
	v := M2I(x)
	if v < minDiscount || v > maxDiscount {
		return 0, validationErrf("%s %.2f out of range [-99.99, 99.99]", name, x)
	}
	return v, nil
}

func validateDocType(docType byte) error {
	if docType > DocReturnPurchase {
		return validationErrf("document type %d out of range [0, 3]", docType)
	}
	return nil
}

// DailyX prints the daily X report (no shift/totals reset) and returns
// the operator number that ran it.
func (s *Session) DailyX() (byte, error) {
	data, err := s.Ask(0x40, append([]byte(nil), s.cfg.AdminPassword[:]...), false, false)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, connErrf("0x40 response missing operator byte")
	}
	return data[0], nil
}

// DailyZ prints the daily Z report, closing the shift and resetting
// daily totals, and returns the operator number that ran it.
func (s *Session) DailyZ() (byte, error) {
	data, err := s.Ask(0x41, append([]byte(nil), s.cfg.AdminPassword[:]...), false, false)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, connErrf("0x41 response missing operator byte")
	}
	return data[0], nil
}

// OpenShift opens a new shift and returns the operator number.
func (s *Session) OpenShift() (byte, error) {
	data, err := s.Ask(0xE0, nil, false, false)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, connErrf("0xE0 response missing operator byte")
	}
	return data[0], nil
}

// lineItem frames the shared layout of the five count+price item
// commands (0x80-0x84: sale, purchase, return-sale, return-purchase,
// storno), which differ only in the command byte.
func (s *Session) lineItem(command byte, count, price float64, department byte, taxes Taxes, text string) (byte, error) {
	if err := taxes.Validate(); err != nil {
		return 0, err
	}
	if department > 16 {
		return 0, validationErrf("department %d out of range [0, 16]", department)
	}
	countInt, err := validateCount("count", count)
	if err != nil {
		return 0, err
	}
	priceInt, err := validateAmount("price", price)
	if err != nil {
		return 0, err
	}
	textBytes, err := EncodeText(text)
	if err != nil {
		return 0, err
	}
	countBytes, err := PackInt5(countInt)
	if err != nil {
		return 0, validationErrf("count %.3f out of range: %v", count, err)
	}
	priceBytes, err := PackInt5(priceInt)
	if err != nil {
		return 0, err
	}

	params := make([]byte, 0, 4+5+5+1+4+40)
	params = append(params, s.cfg.Password[:]...)
	params = append(params, countBytes...)
	params = append(params, priceBytes...)
	params = append(params, department)
	params = append(params, taxes[:]...)
	params = append(params, textBytes[:]...)

	data, err := s.Ask(command, params, false, true)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, connErrf("0x%02X response missing operator byte", command)
	}
	return data[0], nil
}

// Sale registers a sale line item. count and price are decimal; count
// carries 3 implicit fractional digits, price 2.
func (s *Session) Sale(count, price float64, department byte, taxes Taxes, text string) (byte, error) {
	return s.lineItem(0x80, count, price, department, taxes, text)
}

// Purchase registers a purchase line item.
func (s *Session) Purchase(count, price float64, department byte, taxes Taxes, text string) (byte, error) {
	return s.lineItem(0x81, count, price, department, taxes, text)
}

// ReturnSale registers a sale-return line item.
func (s *Session) ReturnSale(count, price float64, department byte, taxes Taxes, text string) (byte, error) {
	return s.lineItem(0x82, count, price, department, taxes, text)
}

// ReturnPurchase registers a purchase-return line item.
func (s *Session) ReturnPurchase(count, price float64, department byte, taxes Taxes, text string) (byte, error) {
	return s.lineItem(0x83, count, price, department, taxes, text)
}

// Storno reverses the last line item entered in the current receipt.
func (s *Session) Storno(count, price float64, department byte, taxes Taxes, text string) (byte, error) {
	return s.lineItem(0x84, count, price, department, taxes, text)
}

// adjustment frames the shared layout of the four summa+taxes commands
// (0x86/0x87/0x8A/0x8B: discount, surcharge, storno of a discount,
// storno of a surcharge), which differ only in the command byte.
func (s *Session) adjustment(command byte, summa float64, taxes Taxes, text string) (byte, error) {
	if err := taxes.Validate(); err != nil {
		return 0, err
	}
	summaInt, err := validateAmount("summa", summa)
	if err != nil {
		return 0, err
	}
	textBytes, err := EncodeText(text)
	if err != nil {
		return 0, err
	}
	summaBytes, err := PackInt5(summaInt)
	if err != nil {
		return 0, err
	}

	params := make([]byte, 0, 4+5+4+40)
	params = append(params, s.cfg.Password[:]...)
	params = append(params, summaBytes...)
	params = append(params, taxes[:]...)
	params = append(params, textBytes[:]...)

	data, err := s.Ask(command, params, false, true)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, connErrf("0x%02X response missing operator byte", command)
	}
	return data[0], nil
}

// DiscountItem applies a discount to the last line item.
func (s *Session) DiscountItem(summa float64, taxes Taxes, text string) (byte, error) {
	return s.adjustment(0x86, summa, taxes, text)
}

// SurchargeItem applies a surcharge to the last line item.
func (s *Session) SurchargeItem(summa float64, taxes Taxes, text string) (byte, error) {
	return s.adjustment(0x87, summa, taxes, text)
}

// StornoDiscount reverses (stornos) a discount.
func (s *Session) StornoDiscount(summa float64, taxes Taxes, text string) (byte, error) {
	return s.adjustment(0x8A, summa, taxes, text)
}

// StornoSurcharge reverses (stornos) a surcharge.
func (s *Session) StornoSurcharge(summa float64, taxes Taxes, text string) (byte, error) {
	return s.adjustment(0x8B, summa, taxes, text)
}

// CancelReceipt voids the receipt currently open.
func (s *Session) CancelReceipt() (byte, error) {
	data, err := s.Ask(0x88, nil, false, false)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, connErrf("0x88 response missing operator byte")
	}
	return data[0], nil
}

// ReceiptSubtotal requests the running subtotal of the receipt currently
// open and returns the operator number from the response; the subtotal
// amount itself is not decoded or returned.
func (s *Session) ReceiptSubtotal() (byte, error) {
	data, err := s.Ask(0x89, nil, false, false)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, connErrf("0x89 response missing operator byte")
	}
	return data[0], nil
}

// ReprintLastDocument reprints the last closed fiscal document.
func (s *Session) ReprintLastDocument() (byte, error) {
	data, err := s.Ask(0x8C, nil, false, false)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, connErrf("0x8C response missing operator byte")
	}
	return data[0], nil
}

// OpenReceipt opens a new receipt of the given document type (one of the
// Doc* constants).
func (s *Session) OpenReceipt(docType byte) (byte, error) {
	if err := validateDocType(docType); err != nil {
		return 0, err
	}
	params := append(append([]byte(nil), s.cfg.Password[:]...), docType)
	data, err := s.Ask(0x8D, params, false, false)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, connErrf("0x8D response missing operator byte")
	}
	return data[0], nil
}

// CloseReceiptResult is the payload returned by CloseReceipt: the
// operator who closed it and the change due to the customer.
type CloseReceiptResult struct {
	Operator byte
	Change   float64
}

// CloseReceipt closes the receipt currently open, applying an overall
// discount and splitting the total across four payment types: cash
// (summs[0]) plus three electronic/other tender types. All four payment
// fields are always sent; an unused tender type is sent as zero.
func (s *Session) CloseReceipt(summs [4]float64, discount float64, taxes Taxes, text string) (CloseReceiptResult, error) {
	if err := taxes.Validate(); err != nil {
		return CloseReceiptResult{}, err
	}
	discountInt, err := validateDiscount("discount", discount)
	if err != nil {
		return CloseReceiptResult{}, err
	}
	textBytes, err := EncodeText(text)
	if err != nil {
		return CloseReceiptResult{}, err
	}
	discountBytes, err := PackInt(2, discountInt)
	if err != nil {
		return CloseReceiptResult{}, err
	}

	params := make([]byte, 0, 4+4*5+2+4+40)
	params = append(params, s.cfg.Password[:]...)
	for i, summa := range summs {
		summaInt, err := validateAmount(fmt.Sprintf("summs[%d]", i), summa)
		if err != nil {
			return CloseReceiptResult{}, err
		}
		summaBytes, err := PackInt5(summaInt)
		if err != nil {
			return CloseReceiptResult{}, err
		}
		params = append(params, summaBytes...)
	}
	params = append(params, discountBytes...)
	params = append(params, taxes[:]...)
	params = append(params, textBytes[:]...)

	data, err := s.Ask(0x85, params, false, false)
	if err != nil {
		return CloseReceiptResult{}, err
	}
	if len(data) < 6 {
		return CloseReceiptResult{}, connErrf("0x85 response too short: need operator and change, got %d bytes", len(data))
	}
	change, err := UnpackInt5(data[1:6])
	if err != nil {
		return CloseReceiptResult{}, wrapConnErr("0x85 response change field", err)
	}
	return CloseReceiptResult{Operator: data[0], Change: I2M(change)}, nil
}

// ExtendedClose closes the receipt currently open using the extended
// close command: up to 16 distinct payment types instead of 0x85's four,
// plus a discount expressed as a percentage rather than a money amount.
// It returns the change due to the customer.
func (s *Session) ExtendedClose(payments [16]float64, discountPercent int16, taxes Taxes, text string) (float64, error) {
	if err := taxes.Validate(); err != nil {
		return 0, err
	}
	if int64(discountPercent) < minDiscount || int64(discountPercent) > maxDiscount {
		return 0, validationErrf("discount percent %d out of range [-9999, 9999]", discountPercent)
	}
	textBytes, err := EncodeText(text)
	if err != nil {
		return 0, err
	}

	params := make([]byte, 0, 4+16*5+2+4+40)
	params = append(params, s.cfg.Password[:]...)
	for i, payment := range payments {
		amount, err := validateAmount(fmt.Sprintf("payment[%d]", i), payment)
		if err != nil {
			return 0, err
		}
		b, err := PackInt5(amount)
		if err != nil {
			return 0, err
		}
		params = append(params, b...)
	}
	discountBytes, err := PackInt(2, int64(discountPercent))
	if err != nil {
		return 0, err
	}
	params = append(params, discountBytes...)
	params = append(params, taxes[:]...)
	params = append(params, textBytes[:]...)

	data, err := s.Ask(0x8E, params, false, false)
	if err != nil {
		return 0, err
	}
	if len(data) < 6 {
		return 0, connErrf("0x8E response too short: need operator and change, got %d bytes", len(data))
	}
	change, err := UnpackInt5(data[1:6])
	if err != nil {
		return 0, wrapConnErr("0x8E response change field", err)
	}
	return I2M(change), nil
}

// DeviceIdentity is the payload of the 0xFC identification command.
type DeviceIdentity struct {
	DeviceType         byte
	DeviceSubtype      byte
	ProtocolVersion    byte
	ProtocolSubversion byte
	DeviceModel        byte
	DeviceLanguage     byte
	DeviceName         string
}

// Identify reads the device's protocol identity. It is the only command
// that takes no password, and is safe to call without knowing any
// credentials at all.
func (s *Session) Identify() (DeviceIdentity, error) {
	data, err := s.Ask(0xFC, []byte{}, true, false)
	if err != nil {
		return DeviceIdentity{}, err
	}
	if len(data) < 6 {
		return DeviceIdentity{}, connErrf("0xFC response too short: need 6 fixed bytes, got %d", len(data))
	}
	name, err := DecodeText(data[6:])
	if err != nil {
		return DeviceIdentity{}, err
	}
	return DeviceIdentity{
		DeviceType:         data[0],
		DeviceSubtype:      data[1],
		ProtocolVersion:    data[2],
		ProtocolSubversion: data[3],
		DeviceModel:        data[4],
		DeviceLanguage:     data[5],
		DeviceName:         name,
	}, nil
}
