package port

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaudCflag(t *testing.T) {
	cases := map[Baud]CFlag{
		Baud2400:   B2400,
		Baud4800:   B4800,
		Baud9600:   B9600,
		Baud19200:  B19200,
		Baud38400:  B38400,
		Baud57600:  B57600,
		Baud115200: B115200,
	}
	for baud, want := range cases {
		got, err := baud.cflag()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestBaudCflagRejectsUnsupportedRate(t *testing.T) {
	_, err := Baud(1200).cflag()
	assert.Error(t, err)
}

func TestMakeRawClearsProcessingFlags(t *testing.T) {
	attrs := &Termios{
		Iflag: IGNBRK | ICRNL,
		Oflag: OPOST,
		Lflag: ECHO | ICANON | ISIG,
		Cflag: PARENB,
	}
	attrs.MakeRaw()
	assert.Equal(t, IFlag(0), attrs.Iflag)
	assert.Equal(t, OFlag(0), attrs.Oflag)
	assert.Equal(t, LFlag(0), attrs.Lflag)
	assert.Equal(t, CS8, attrs.Cflag&CSIZE)
	assert.Equal(t, CFlag(0), attrs.Cflag&PARENB)
}

func TestSetSpeedReplacesBaudBits(t *testing.T) {
	attrs := &Termios{Cflag: B9600 | CREAD}
	attrs.SetSpeed(B115200)
	assert.Equal(t, B115200, attrs.Cflag&(CBAUD|CBAUDEX))
	assert.Equal(t, CREAD, attrs.Cflag&CREAD, "unrelated bits must survive a speed change")
}
