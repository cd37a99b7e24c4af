// Package serial implements the serial device opener of spec.md §4.C:
// open device, apply line settings, set non-blocking and close-on-exec,
// save prior termios for restore on close.
//
// Grounded on the teacher's use of golang.org/x/sys/unix for raw
// syscalls (reactor/reactor_linux.go); termios ioctls are the standard
// way to configure a tty in Go and no pack example wraps them in a
// higher-level library, so unix.IoctlGetTermios/SetTermios is used
// directly.
//
// Author: momentics <momentics@gmail.com>
package serial

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/consoled/internal/obj"
)

var baudRates = map[int]uint32{
	1200: unix.B1200, 2400: unix.B2400, 4800: unix.B4800,
	9600: unix.B9600, 19200: unix.B19200, 38400: unix.B38400,
	57600: unix.B57600, 115200: unix.B115200,
}

// Open opens the serial device named by o.Serial.Device, applies line
// settings, and leaves o.FD set and o.Serial.Saved holding the prior
// termios for restoration on close. On failure it returns the error
// and leaves o.FD at -1. internal/mux's OpenAll logs the error and
// keeps the object without a descriptor; no reopen is ever scheduled.
func Open(o *obj.Object) error {
	fd, err := unix.Open(o.Serial.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", o.Serial.Device, err)
	}

	saved, err := unix.IoctlGetTermios(fd, ioctlGets())
	if err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("get termios %s: %w", o.Serial.Device, err)
	}
	savedCopy := *saved
	o.Serial.Saved = &savedCopy

	t := *saved
	applyLineSettings(&t, o.Serial)

	if err := unix.IoctlSetTermios(fd, ioctlSets(), &t); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("set termios %s: %w", o.Serial.Device, err)
	}

	setCloseOnExec(fd)
	o.FD = fd
	return nil
}

// Close restores the saved termios and closes the descriptor.
func Close(o *obj.Object) {
	if o.FD < 0 {
		return
	}
	if saved, ok := o.Serial.Saved.(*unix.Termios); ok && saved != nil {
		_ = unix.IoctlSetTermios(o.FD, ioctlSets(), saved)
	}
	_ = unix.Close(o.FD)
	o.FD = -1
}

func applyLineSettings(t *unix.Termios, aux obj.SerialAux) {
	t.Cflag &^= unix.CBAUD
	if rate, ok := baudRates[aux.Baud]; ok {
		t.Cflag |= rate
	} else {
		t.Cflag |= unix.B9600
	}

	t.Cflag &^= unix.CSIZE
	switch aux.DataBits {
	case 7:
		t.Cflag |= unix.CS7
	default:
		t.Cflag |= unix.CS8
	}

	switch aux.Parity {
	case "E":
		t.Cflag |= unix.PARENB
		t.Cflag &^= unix.PARODD
	case "O":
		t.Cflag |= unix.PARENB | unix.PARODD
	default:
		t.Cflag &^= unix.PARENB
	}

	if aux.FlowCtl == "hardware" {
		t.Cflag |= unix.CRTSCTS
	} else {
		t.Cflag &^= unix.CRTSCTS
	}
	if aux.FlowCtl == "software" {
		t.Iflag |= unix.IXON | unix.IXOFF
	} else {
		t.Iflag &^= unix.IXON | unix.IXOFF
	}

	// Raw mode: no line editing, no signal generation, 8-bit clean pass-through.
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ISIG | unix.IEXTEN
	t.Oflag &^= unix.OPOST
	t.Cflag |= unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

func setCloseOnExec(fd int) {
	_, _, _ = unix.Syscall(unix.SYS_FCNTL, uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC)
}

func ioctlGets() uint {
	return unix.TCGETS
}

func ioctlSets() uint {
	return unix.TCSETS
}
