// Package bridge connects the drive controller to the rest of the robot
// software over redis: velocity commands and service requests come in on
// pub/sub channels, telemetry goes out as hashes with change notifications.
package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/roverbot-team/roverbot/go-controller/pkg/diffdrive"
	"github.com/roverbot-team/roverbot/go-controller/pkg/imu"
)

const (
	cmdVelChannel   = "cmd_vel"
	requestChannel  = "firmware/request"
	responseChannel = "firmware/response"
)

// Drive is the slice of the drive controller the bridge needs.
type Drive interface {
	SetSpeed(linear, angular float64)
	ResetOdom() error
	Enable()
	Disable() error
	EnableWheel(i int)
	DisableWheel(i int) error
}

type BoardInfo struct {
	Type            string
	FirmwareVersion string
}

type Bridge struct {
	rdb   *redis.Client
	drive Drive
	info  BoardInfo

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex // serializes outbound pipelines

	cmdVelSub  *redis.PubSub
	requestSub *redis.PubSub

	resetRequests chan struct{}
}

func New(addr string, drive Drive, info BoardInfo) (*Bridge, error) {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		rdb:           redis.NewClient(&redis.Options{Addr: addr}),
		drive:         drive,
		info:          info,
		ctx:           ctx,
		cancel:        cancel,
		resetRequests: make(chan struct{}, 1),
	}

	if err := b.rdb.Ping(ctx).Err(); err != nil {
		cancel()
		return nil, fmt.Errorf("bridge: redis at %s unreachable: %v", addr, err)
	}

	b.cmdVelSub = b.rdb.Subscribe(ctx, cmdVelChannel)
	b.requestSub = b.rdb.Subscribe(ctx, requestChannel)
	go b.handleCmdVel()
	go b.handleRequests()

	return b, nil
}

// ResetRequests delivers one value per reset_board request; the main loop
// decides when to act on it.
func (b *Bridge) ResetRequests() <-chan struct{} {
	return b.resetRequests
}

func (b *Bridge) handleCmdVel() {
	for {
		msg, err := b.cmdVelSub.Receive(b.ctx)
		if err != nil {
			if b.ctx.Err() != nil {
				return
			}
			fmt.Println("BRIDGE: cmd_vel subscription error:", err)
			continue
		}

		m, ok := msg.(*redis.Message)
		if !ok {
			continue
		}
		linear, angular, err := parseCmdVel(m.Payload)
		if err != nil {
			fmt.Println("BRIDGE: dropping bad cmd_vel:", err)
			continue
		}
		b.drive.SetSpeed(linear, angular)
	}
}

// parseCmdVel decodes "linear angular" payloads, m/s and rad/s.
func parseCmdVel(payload string) (linear, angular float64, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected 2 fields, got %q", payload)
	}
	linear, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, err
	}
	angular, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return linear, angular, nil
}

func (b *Bridge) handleRequests() {
	for {
		msg, err := b.requestSub.Receive(b.ctx)
		if err != nil {
			if b.ctx.Err() != nil {
				return
			}
			fmt.Println("BRIDGE: request subscription error:", err)
			continue
		}

		m, ok := msg.(*redis.Message)
		if !ok {
			continue
		}
		b.respond(m.Payload, b.serveRequest(m.Payload))
	}
}

func (b *Bridge) serveRequest(request string) string {
	verb, arg, _ := strings.Cut(request, " ")
	switch verb {
	case "reset_odometry":
		if err := b.drive.ResetOdom(); err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return "ok"
	case "enable":
		if arg == "" {
			b.drive.Enable()
			return "ok"
		}
		i, err := wheelIndex(arg)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		b.drive.EnableWheel(i)
		return "ok"
	case "disable":
		if arg == "" {
			if err := b.drive.Disable(); err != nil {
				return fmt.Sprintf("error: %v", err)
			}
			return "ok"
		}
		i, err := wheelIndex(arg)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		if err := b.drive.DisableWheel(i); err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return "ok"
	case "get_firmware_version":
		return b.info.FirmwareVersion
	case "get_board_type":
		return b.info.Type
	case "reset_board":
		select {
		case b.resetRequests <- struct{}{}:
		default:
		}
		return "requested board software reset"
	default:
		return fmt.Sprintf("error: unknown request %q", request)
	}
}

func (b *Bridge) respond(request, message string) {
	payload := request + ": " + message
	if err := b.rdb.Publish(b.ctx, responseChannel, payload).Err(); err != nil {
		fmt.Println("BRIDGE: failed to publish response:", err)
	}
}

func (b *Bridge) PublishOdom(o diffdrive.Odom) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pipe := b.rdb.Pipeline()
	pipe.HSet(b.ctx, "firmware:wheel_odom", map[string]interface{}{
		"velocity-linear":  o.VelocityLinear,
		"velocity-angular": o.VelocityAngular,
		"pose-x":           o.PoseX,
		"pose-y":           o.PoseY,
		"pose-yaw":         o.PoseYaw,
	})
	pipe.Publish(b.ctx, "firmware/wheel_odom", nil)

	if _, err := pipe.Exec(b.ctx); err != nil {
		return fmt.Errorf("failed to publish wheel odom: %v", err)
	}
	return nil
}

var wheelNames = [diffdrive.NumWheels]string{"fl", "rl", "fr", "rr"}

func wheelIndex(name string) (int, error) {
	for i, n := range wheelNames {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown wheel %q", name)
}

func (b *Bridge) PublishWheelStates(s *diffdrive.WheelStates) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fields := make(map[string]interface{}, diffdrive.NumWheels*5)
	for i, name := range wheelNames {
		fields[name+":position"] = s.Position[i]
		fields[name+":velocity"] = s.Velocity[i]
		fields[name+":torque"] = s.Torque[i]
		fields[name+":pwm-duty"] = s.PWMDutyCycle[i]
		fields[name+":enabled"] = map[bool]string{true: "on", false: "off"}[s.Enabled[i]]
	}

	pipe := b.rdb.Pipeline()
	pipe.HSet(b.ctx, "firmware:wheel_states", fields)
	pipe.Publish(b.ctx, "firmware/wheel_states", nil)

	if _, err := pipe.Exec(b.ctx); err != nil {
		return fmt.Errorf("failed to publish wheel states: %v", err)
	}
	return nil
}

func (b *Bridge) PublishBattery(volts, averaged float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pipe := b.rdb.Pipeline()
	pipe.HSet(b.ctx, "firmware:battery",
		"voltage", volts,
		"voltage-averaged", averaged,
	)
	pipe.Publish(b.ctx, "firmware/battery", nil)

	if _, err := pipe.Exec(b.ctx); err != nil {
		return fmt.Errorf("failed to publish battery: %v", err)
	}
	return nil
}

func (b *Bridge) PublishIMU(r imu.Report) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pipe := b.rdb.Pipeline()
	pipe.HSet(b.ctx, "firmware:imu", map[string]interface{}{
		"accel-x":     r.AccelX,
		"accel-y":     r.AccelY,
		"accel-z":     r.AccelZ,
		"gyro-x":      r.GyroX,
		"gyro-y":      r.GyroY,
		"gyro-z":      r.GyroZ,
		"temperature": r.Temperature,
	})
	pipe.Publish(b.ctx, "firmware/imu", nil)

	if _, err := pipe.Exec(b.ctx); err != nil {
		return fmt.Errorf("failed to publish imu: %v", err)
	}
	return nil
}

func (b *Bridge) Close() {
	b.cancel()
	if b.cmdVelSub != nil {
		_ = b.cmdVelSub.Close()
	}
	if b.requestSub != nil {
		_ = b.requestSub.Close()
	}
	_ = b.rdb.Close()
}
