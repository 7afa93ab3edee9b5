package motor

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/exp/io/i2c"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

const BoardAddr = 0x58

type Register byte

const (
	RegCtrl Register = iota
	RegStatus
	RegFaultCount
	RegPolarity

	RegMot0Power
	RegMot1Power
	RegMot2Power
	RegMot3Power

	// Encoder counters are 32-bit, low word first.  The board latches the
	// high word when the low word is read, so a single 4-byte read is
	// coherent.
	RegMot0EncLo
	RegMot0EncHi
	RegMot1EncLo
	RegMot1EncHi
	RegMot2EncLo
	RegMot2EncHi
	RegMot3EncLo
	RegMot3EncHi

	RegMot0Current
	RegMot1Current
	RegMot2Current
	RegMot3Current

	RegBattV // LSB=4mV
)

const (
	RegCtrlEnableI2CControl uint16 = 1 << iota
	RegCtrlRun
	RegCtrlResetEnc0
	RegCtrlResetEnc1
	RegCtrlResetEnc2
	RegCtrlResetEnc3
)

type StatusFlag uint16

const (
	RegStatusFault StatusFlag = 1 << iota
	RegStatusUnderVoltage
)

const (
	BattVLSB   = 0.004
	CurrentLSB = 0.0001831054688
)

// Per-motor nSLEEP and nFAULT lines on the SBC header.  The driver chips
// are held in sleep until the board is opened.
var (
	sleepPinNames = [NumMotors]string{"GPIO5", "GPIO6", "GPIO12", "GPIO13"}
	faultPinNames = [NumMotors]string{"GPIO16", "GPIO19", "GPIO20", "GPIO26"}
)

var i2cBus = &i2c.Devfs{Dev: "/dev/i2c-1"}

// Board is the real driver board.  All register access goes through a single
// mutex; the control tick and the slow telemetry path share the bus.
type Board struct {
	mu       sync.Mutex
	dev      *i2c.Device
	polarity uint16

	sleepPins [NumMotors]gpio.PinIO
	faultPins [NumMotors]gpio.PinIO
}

func Open() (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("motor: periph host init: %v", err)
	}

	b := &Board{}
	for i := 0; i < NumMotors; i++ {
		b.sleepPins[i] = gpioreg.ByName(sleepPinNames[i])
		b.faultPins[i] = gpioreg.ByName(faultPinNames[i])
		if b.sleepPins[i] == nil || b.faultPins[i] == nil {
			return nil, fmt.Errorf("motor: GPIO pins for motor %d not found", i)
		}
		if err := b.faultPins[i].In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("motor: fault pin %s: %v", faultPinNames[i], err)
		}
	}

	dev, err := i2c.Open(i2cBus, BoardAddr)
	if err != nil {
		return nil, err
	}
	b.dev = dev

	if err := b.writeReg(RegCtrl, RegCtrlEnableI2CControl|RegCtrlRun); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return b, nil
}

// Channel returns the driver channel for motor n.  Channels share the board
// but own their register slots, so they can be used independently.
func (b *Board) Channel(n int) Channel {
	if n < 0 || n >= NumMotors {
		panic(fmt.Sprintf("motor: no such channel %d", n))
	}
	return &boardChannel{board: b, n: n}
}

// CheckFaults samples the nFAULT line of every driver chip.  Fault recovery
// is the driver chip's own business; we only report.
func (b *Board) CheckFaults() (faulted [NumMotors]bool) {
	for i := 0; i < NumMotors; i++ {
		// nFAULT is active low.
		faulted[i] = b.faultPins[i].Read() == gpio.Low
	}
	return faulted
}

// BattVolts reads the battery voltage measured by the board.
func (b *Board) BattVolts() (float64, error) {
	raw, err := b.readReg(RegBattV)
	if err != nil {
		return 0, err
	}
	return float64(raw) * BattVLSB, nil
}

func (b *Board) Close() error {
	for i := 0; i < NumMotors; i++ {
		_ = b.writeReg(RegMot0Power+Register(i), 0)
		if b.sleepPins[i] != nil {
			_ = b.sleepPins[i].Out(gpio.Low)
		}
	}
	return b.dev.Close()
}

func (b *Board) writeReg(reg Register, value uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev.Write([]byte{byte(reg), byte(value >> 8), byte(value)})
}

func (b *Board) readReg(reg Register) (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var buf [2]byte
	if err := b.dev.ReadReg(byte(reg), buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (b *Board) readReg32(reg Register) (int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var buf [4]byte
	if err := b.dev.ReadReg(byte(reg), buf[:]); err != nil {
		return 0, err
	}
	lo := binary.BigEndian.Uint16(buf[0:2])
	hi := binary.BigEndian.Uint16(buf[2:4])
	return int32(uint32(hi)<<16 | uint32(lo)), nil
}

var _ Driver = (*Board)(nil)

type boardChannel struct {
	board *Board
	n     int

	motorReversed   bool
	encoderReversed bool
}

func (c *boardChannel) Init() error {
	b := c.board

	b.mu.Lock()
	bit := uint16(1) << uint(c.n)
	encBit := uint16(1) << uint(c.n+NumMotors)
	if c.motorReversed {
		b.polarity |= bit
	} else {
		b.polarity &^= bit
	}
	if c.encoderReversed {
		b.polarity |= encBit
	} else {
		b.polarity &^= encBit
	}
	polarity := b.polarity
	b.mu.Unlock()

	if err := b.writeReg(RegPolarity, polarity); err != nil {
		return err
	}
	if err := c.SetPower(0); err != nil {
		return err
	}
	// Wake the driver chip.
	return b.sleepPins[c.n].Out(gpio.High)
}

func (c *boardChannel) ResetEncoderCnt() error {
	return c.board.writeReg(RegCtrl,
		RegCtrlEnableI2CControl|RegCtrlRun|RegCtrlResetEnc0<<uint(c.n))
}

func (c *boardChannel) EncoderCnt() (int32, error) {
	return c.board.readReg32(RegMot0EncLo + Register(2*c.n))
}

func (c *boardChannel) SetPower(power int16) error {
	if power > PWMRange {
		power = PWMRange
	} else if power < -PWMRange {
		power = -PWMRange
	}
	return c.board.writeReg(RegMot0Power+Register(c.n), uint16(power))
}

func (c *boardChannel) WindingCurrent() (float64, error) {
	raw, err := c.board.readReg(RegMot0Current + Register(c.n))
	if err != nil {
		return 0, err
	}
	return float64(int16(raw)) * CurrentLSB, nil
}

func (c *boardChannel) SetMotorPolarity(p Polarity) {
	c.motorReversed = p == PolarityReversed
}

func (c *boardChannel) SetEncoderPolarity(p Polarity) {
	c.encoderReversed = p == PolarityReversed
}

var _ Channel = (*boardChannel)(nil)
