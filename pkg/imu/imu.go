// Package imu reads the inertial unit's fixed-format UART stream and keeps
// the latest sample available for the telemetry publisher.  The control core
// never consumes these values; they ride along on the same board.
package imu

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

const serialDevice = "/dev/ttyS0"

const (
	// Frame layout: aa aa | index | ax ay az | gx gy gz | temp | csum,
	// int16 little-endian fields.
	packetLen = 18

	accelLSB = 0.00981  // m/s^2 per raw count (1mg)
	gyroLSB  = 0.001065 // rad/s per raw count
	tempLSB  = 0.01     // degC per raw count
)

type Report struct {
	Time        time.Time
	Index       uint8
	Temperature float64
	AccelX      float64
	AccelY      float64
	AccelZ      float64
	GyroX       float64
	GyroY       float64
	GyroZ       float64
}

type Receiver struct {
	lock       sync.Mutex
	lastReport Report
}

func New() *Receiver {
	return &Receiver{}
}

// CurrentReport returns the most recent sample (zero value until the first
// frame arrives).
func (r *Receiver) CurrentReport() Report {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.lastReport
}

// LoopReadingReports keeps the serial port open and the latest sample
// fresh, reopening on errors, until the context is cancelled.
func (r *Receiver) LoopReadingReports(ctx context.Context) {
	for ctx.Err() == nil {
		err := r.openAndLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		fmt.Println("IMU loop stopped; will retry:", err)
		time.Sleep(100 * time.Millisecond)
	}
}

func (r *Receiver) openAndLoop(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: 115200,
	}
	s, err := serial.Open(serialDevice, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", serialDevice, err)
	}
	defer s.Close()

	br := bufio.NewReader(s)
resync:
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		head, err := br.Peek(2)
		if err != nil {
			return fmt.Errorf("failed to read from serial: %w", err)
		}
		if bytes.Equal(head, []byte{0xaa, 0xaa}) {
			break
		}
		if _, err := br.Discard(1); err != nil {
			return fmt.Errorf("failed to read from serial: %w", err)
		}
	}

	buf := make([]byte, packetLen)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := io.ReadAtLeast(br, buf, packetLen); err != nil {
			return fmt.Errorf("failed to read from serial: %w", err)
		}
		if !bytes.Equal(buf[:2], []byte{0xaa, 0xaa}) {
			fmt.Println("IMU: lost sync with packet stream")
			goto resync
		}
		var checksum uint8
		for _, b := range buf[2 : packetLen-1] {
			checksum += b
		}
		if buf[packetLen-1] != checksum {
			fmt.Printf("IMU: bad checksum %x != %x\n", buf[packetLen-1], checksum)
			goto resync
		}

		report := parseFrame(buf)
		r.lock.Lock()
		r.lastReport = report
		r.lock.Unlock()
	}
}

func parseFrame(buf []byte) Report {
	raw := func(off int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(buf[off : off+2])))
	}
	return Report{
		Time:        time.Now(),
		Index:       buf[2],
		AccelX:      raw(3) * accelLSB,
		AccelY:      raw(5) * accelLSB,
		AccelZ:      raw(7) * accelLSB,
		GyroX:       raw(9) * gyroLSB,
		GyroY:       raw(11) * gyroLSB,
		GyroZ:       raw(13) * gyroLSB,
		Temperature: raw(15) * tempLSB,
	}
}
