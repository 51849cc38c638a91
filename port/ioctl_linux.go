package port

// ioctl request numbers lifted from asm-generic/ioctls.h. Only the handful
// the KKT transport actually drives (attribute get/set, flush, drain) are
// kept; the rest of the teacher's terminal ioctl surface (RS485, break,
// modem lines, packet mode, pty allocation) has no caller in this driver.
var (
	tcgets = uintptr(0x5401)
	tcsets = uintptr(0x5402)

	tcsbrk = uintptr(0x5409)
	tcflsh = uintptr(0x540B)
)
