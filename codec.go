package kkt

import (
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// PackInt serializes v into exactly width little-endian, two's-complement
// bytes. Generalized from the original Python driver's fixed-width
// struct.Struct packers plus its bespoke Int5 type: one width-parameterized
// family replaces both, since the fiscal wire format needs 2, 4, 5 and
// 8-byte fields and no native Go integer type covers 5 bytes. Any other
// width is rejected.
func PackInt(width int, v int64) ([]byte, error) {
	switch width {
	case 2, 4, 5, 8:
	default:
		return nil, fmt.Errorf("kkt: unsupported integer width %d", width)
	}
	if width < 8 {
		bits := uint(8*width - 1)
		lo := -(int64(1) << bits)
		hi := (int64(1) << bits) - 1
		if v < lo || v > hi {
			return nil, fmt.Errorf("kkt: value %d out of range for a %d-byte signed field", v, width)
		}
	}
	buf := make([]byte, width)
	uv := uint64(v)
	for i := 0; i < width; i++ {
		buf[i] = byte(uv)
		uv >>= 8
	}
	return buf, nil
}

// UnpackInt reverses PackInt: b must be exactly width bytes.
func UnpackInt(width int, b []byte) (int64, error) {
	if len(b) != width {
		return 0, fmt.Errorf("kkt: expected %d bytes, got %d", width, len(b))
	}
	var uv uint64
	for i := width - 1; i >= 0; i-- {
		uv = uv<<8 | uint64(b[i])
	}
	if width < 8 && b[width-1]&0x80 != 0 {
		uv |= ^uint64(0) << uint(8*width)
	}
	return int64(uv), nil
}

// PackInt5 and UnpackInt5 name the wire format's single most distinctive
// field width directly, since 5-byte integers recur across nearly every
// command (counts, prices, discounts, change).
func PackInt5(v int64) ([]byte, error) { return PackInt(5, v) }
func UnpackInt5(b []byte) (int64, error) { return UnpackInt(5, b) }

// M2I converts a decimal money value to its 2-fractional-digit scaled
// integer wire representation: m2i(x, d) = round(x * 10^d).
func M2I(x float64) int64 { return M2ID(x, 2) }

// M2ID is M2I with an explicit fractional digit count.
func M2ID(x float64, digits int) int64 {
	return int64(math.Round(x * math.Pow10(digits)))
}

// I2M reverses M2I, rounding the float back to 2 fractional digits.
func I2M(n int64) float64 { return I2MD(n, 2) }

// I2MD is I2M with an explicit fractional digit count.
func I2MD(n int64, digits int) float64 {
	scale := math.Pow10(digits)
	return math.Round(float64(n)/scale*scale) / scale
}

// C2I converts a decimal count (3 implicit fractional digits) to its
// scaled integer wire representation, optionally multiplied by a
// device-specific coefficient (default 1, matching the original Python
// driver's `count2integer`).
func C2I(x float64) int64 { return C2ICoef(x, 1) }

// C2ICoef is C2I with an explicit coefficient.
func C2ICoef(x float64, coefficient int64) int64 {
	return M2ID(x, 3) * coefficient
}

// LRC computes the frame checksum: a byte-wise XOR reduction.
func LRC(b []byte) byte {
	var r byte
	for _, c := range b {
		r ^= c
	}
	return r
}

const maxTextRunes = 40
const textFieldWidth = 40

var win1251 = charmap.Windows1251

// EncodeText WIN1251-encodes s and right-pads it with 0x00 to exactly 40
// bytes. Uniform byte padding resolves the inconsistency flagged in the
// original design (some commands padded with a character value instead
// of a raw byte); every command in this driver pads with 0x00.
func EncodeText(s string) ([textFieldWidth]byte, error) {
	var out [textFieldWidth]byte
	if utf8.RuneCountInString(s) > maxTextRunes {
		return out, validationErrf("text %q exceeds %d characters", s, maxTextRunes)
	}
	enc, err := win1251.NewEncoder().String(s)
	if err != nil {
		return out, validationErrf("text %q is not representable in WIN1251: %v", s, err)
	}
	if len(enc) > textFieldWidth {
		return out, validationErrf("encoded text %q exceeds %d bytes", s, textFieldWidth)
	}
	copy(out[:], enc)
	return out, nil
}

// DecodeText decodes a WIN1251 byte field, trimming trailing 0x00 padding.
func DecodeText(b []byte) (string, error) {
	end := len(b)
	for end > 0 && b[end-1] == 0x00 {
		end--
	}
	s, err := win1251.NewDecoder().String(string(b[:end]))
	if err != nil {
		return "", fmt.Errorf("kkt: text field is not valid WIN1251: %w", err)
	}
	return s, nil
}

// Password is the 4-byte operator or administrator credential prefixed to
// most commands.
type Password [4]byte

// PasswordFromInt encodes v, which must be in [0, 9999], little-endian
// into a 4-byte Password.
func PasswordFromInt(v int) (Password, error) {
	var p Password
	if v < 0 || v > 9999 {
		return p, fmt.Errorf("kkt: password %d out of range [0, 9999]", v)
	}
	b, _ := PackInt(4, int64(v))
	copy(p[:], b)
	return p, nil
}

// PasswordFromBytes takes the first 4 bytes of b verbatim.
func PasswordFromBytes(b []byte) (Password, error) {
	var p Password
	if len(b) < 4 {
		return p, fmt.Errorf("kkt: password byte sequence must have at least 4 bytes, got %d", len(b))
	}
	copy(p[:], b[:4])
	return p, nil
}

// Taxes is the fixed four-element tax vector attached to line items and
// receipt totals. Each element is 0 ("no tax") or a tax group 1..4.
type Taxes [4]byte

// Validate checks that every element is in {0,1,2,3,4}.
func (t Taxes) Validate() error {
	for i, v := range t {
		if v > 4 {
			return validationErrf("tax group at position %d must be 0..4, got %d", i, v)
		}
	}
	return nil
}
