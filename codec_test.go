package kkt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackInt5RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 123456789, -123456789, 549755813887, -549755813888}
	for _, v := range cases {
		b, err := PackInt5(v)
		require.NoError(t, err)
		require.Len(t, b, 5)
		got, err := UnpackInt5(b)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestPackInt5RangeCheck(t *testing.T) {
	_, err := PackInt5(1 << 40)
	assert.Error(t, err)
	_, err = PackInt5(-(1 << 40))
	assert.Error(t, err)
}

func TestPackIntWidths(t *testing.T) {
	for _, width := range []int{2, 4, 5, 8} {
		b, err := PackInt(width, -1)
		require.NoError(t, err)
		require.Len(t, b, width)
		for _, c := range b {
			assert.Equal(t, byte(0xFF), c)
		}
		got, err := UnpackInt(width, b)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), got)
	}
}

func TestPackIntRejectsUnsupportedWidth(t *testing.T) {
	_, err := PackInt(3, 0)
	assert.Error(t, err)
	_, err = PackInt(9, 0)
	assert.Error(t, err)
}

func TestMoneyIntegerRoundTrip(t *testing.T) {
	assert.Equal(t, int64(12345), M2I(123.45))
	assert.Equal(t, 123.45, I2M(12345))
	assert.Equal(t, int64(-500), M2I(-5.0))
}

func TestCountToInteger(t *testing.T) {
	assert.Equal(t, int64(2500), C2I(2.5))
	assert.Equal(t, int64(1000), C2I(1))
	assert.Equal(t, int64(5000), C2ICoef(2.5, 2))
}

func TestLRC(t *testing.T) {
	assert.Equal(t, byte(0), LRC(nil))
	assert.Equal(t, byte(0x01^0x02^0x03), LRC([]byte{0x01, 0x02, 0x03}))
}

func TestLRCDetectsBitFlip(t *testing.T) {
	frame := []byte{0x05, 0x80, 0x00, 0x01, 0x02, 0x03}
	good := LRC(frame)
	frame[2] ^= 0x01
	assert.NotEqual(t, good, LRC(frame))
}

func TestEncodeTextPadsWithZeroBytes(t *testing.T) {
	b, err := EncodeText("ok")
	require.NoError(t, err)
	assert.Equal(t, byte('o'), b[0])
	assert.Equal(t, byte('k'), b[1])
	for i := 2; i < textFieldWidth; i++ {
		assert.Equal(t, byte(0x00), b[i], "byte %d should be zero padding", i)
	}
}

func TestEncodeTextRejectsOverlong(t *testing.T) {
	s := ""
	for i := 0; i < 41; i++ {
		s += "x"
	}
	_, err := EncodeText(s)
	assert.Error(t, err)
}

func TestEncodeTextAcceptsExactly40(t *testing.T) {
	s := ""
	for i := 0; i < 40; i++ {
		s += "x"
	}
	_, err := EncodeText(s)
	assert.NoError(t, err)
}

func TestDecodeTextTrimsPadding(t *testing.T) {
	var field [40]byte
	copy(field[:], "hello")
	s, err := DecodeText(field[:])
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestPasswordFromInt(t *testing.T) {
	p, err := PasswordFromInt(30)
	require.NoError(t, err)
	assert.Equal(t, Password{30, 0, 0, 0}, p)

	_, err = PasswordFromInt(-1)
	assert.Error(t, err)
	_, err = PasswordFromInt(10000)
	assert.Error(t, err)
}

func TestTaxesValidate(t *testing.T) {
	assert.NoError(t, Taxes{0, 1, 2, 4}.Validate())
	assert.Error(t, Taxes{0, 5, 0, 0}.Validate())
}
