package imu

import (
	"encoding/binary"
	"math"
	"testing"
)

func buildFrame(index uint8, fields [7]int16) []byte {
	buf := make([]byte, packetLen)
	buf[0], buf[1] = 0xaa, 0xaa
	buf[2] = index
	for i, v := range fields {
		binary.LittleEndian.PutUint16(buf[3+2*i:], uint16(v))
	}
	var checksum uint8
	for _, b := range buf[2 : packetLen-1] {
		checksum += b
	}
	buf[packetLen-1] = checksum
	return buf
}

func TestParseFrame(t *testing.T) {
	frame := buildFrame(7, [7]int16{100, -200, 1000, 50, -50, 0, 2512})
	report := parseFrame(frame)

	if report.Index != 7 {
		t.Errorf("index %d, want 7", report.Index)
	}
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"accel x", report.AccelX, 100 * accelLSB},
		{"accel y", report.AccelY, -200 * accelLSB},
		{"accel z", report.AccelZ, 1000 * accelLSB},
		{"gyro x", report.GyroX, 50 * gyroLSB},
		{"gyro y", report.GyroY, -50 * gyroLSB},
		{"gyro z", report.GyroZ, 0},
		{"temperature", report.Temperature, 25.12},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s: got %g, want %g", c.name, c.got, c.want)
		}
	}
}
