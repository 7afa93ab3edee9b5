package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/roverbot-team/roverbot/go-controller/pkg/battery"
	"github.com/roverbot-team/roverbot/go-controller/pkg/bridge"
	"github.com/roverbot-team/roverbot/go-controller/pkg/diffdrive"
	"github.com/roverbot-team/roverbot/go-controller/pkg/imu"
	"github.com/roverbot-team/roverbot/go-controller/pkg/motor"
	"github.com/roverbot-team/roverbot/go-controller/pkg/params"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
)

const (
	boardType       = "roverbot"
	firmwareVersion = "1.2.0"

	updatePeriodMs = 10
	updatePeriod   = updatePeriodMs * time.Millisecond

	// Publish cadences, in control ticks.
	odomPubPeriod    = 5   // 20 Hz
	jointsPubPeriod  = 10  // 10 Hz
	imuPubPeriod     = 5   // 20 Hz
	batteryPubPeriod = 100 // 1 Hz
	faultCheckPeriod = 100

	// Status LED on the SBC header: slow blink when healthy, fast blink
	// when the battery runs low.
	statusLEDPin       = "GPIO17"
	ledBlinkTicks      = 50
	ledBlinkTicksAlarm = 10
)

var (
	configPath  = flag.String("config", "/etc/roverbot/firmware.yaml", "Path to the tunables file")
	redisServer = flag.String("redis_server", "127.0.0.1", "Redis server address")
	redisPort   = flag.Int("redis_port", 6379, "Redis server port")
)

func main() {
	flag.Parse()

	fmt.Print("---- Roverbot ----\n\n")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancel()
	}()

	prm, err := params.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load params: %v", err)
	}

	var drv motor.Driver
	drv, err = motor.Open()
	if err != nil {
		fmt.Printf("Failed to open motor board: %v.\n", err)
		if os.Getenv("IGNORE_MISSING_MOTOR_BOARD") == "true" {
			fmt.Println("Using simulated motor board")
			drv = motor.NewSim()
		} else {
			return
		}
	}
	defer drv.Close()

	dc := diffdrive.New(diffdrive.Config{
		Channels: [diffdrive.NumWheels]motor.Channel{
			drv.Channel(0), drv.Channel(1), drv.Channel(2), drv.Channel(3),
		},
		Params: &prm,
	})
	if err := dc.Init(); err != nil {
		log.Fatalf("Failed to init drive controller: %v", err)
	}
	defer func() {
		fmt.Println("Zeroing motors")
		if err := dc.Disable(); err != nil {
			fmt.Println("Failed to zero motors:", err)
		}
	}()

	batt := battery.NewMonitor(drv, prm.BatteryMinVoltage)

	imuRx := imu.New()
	go imuRx.LoopReadingReports(ctx)

	br, err := bridge.New(fmt.Sprintf("%s:%d", *redisServer, *redisPort), dc, bridge.BoardInfo{
		Type:            boardType,
		FirmwareVersion: firmwareVersion,
	})
	if err != nil {
		log.Fatalf("Failed to connect bridge: %v", err)
	}
	defer br.Close()

	led := gpioreg.ByName(statusLEDPin)
	if led == nil {
		fmt.Println("Status LED pin not available")
	}
	var ledOn bool

	sim, _ := drv.(*motor.Sim)

	ticker := time.NewTicker(updatePeriod)
	defer ticker.Stop()

	var cnt uint32
	for {
		select {
		case <-ctx.Done():
			fmt.Println("Context done, shutting down")
			return

		case <-br.ResetRequests():
			fmt.Println("Board reset requested, exiting for service restart")
			time.Sleep(time.Second)
			if err := dc.Disable(); err != nil {
				fmt.Println("Failed to zero motors:", err)
			}
			br.Close()
			drv.Close()
			os.Exit(0)

		case <-ticker.C:
			cnt++
			if sim != nil {
				sim.Advance(updatePeriodMs)
			}

			if err := dc.Update(updatePeriodMs); err != nil {
				fmt.Println("Drive update failed:", err)
			}
			if err := batt.Update(); err != nil && cnt%batteryPubPeriod == 0 {
				fmt.Println("Battery read failed:", err)
			}
			if batt.Low() && cnt%batteryPubPeriod == 0 {
				fmt.Printf("BAT: low voltage %.2fV\n", batt.Averaged())
			}

			if cnt%odomPubPeriod == 0 {
				if err := br.PublishOdom(dc.Odom()); err != nil {
					fmt.Println("BRIDGE:", err)
				}
			}
			if cnt%jointsPubPeriod == 0 {
				var states diffdrive.WheelStates
				if err := dc.WheelStates(&states); err != nil {
					fmt.Println("Wheel states read failed:", err)
				}
				if err := br.PublishWheelStates(&states); err != nil {
					fmt.Println("BRIDGE:", err)
				}
			}
			if cnt%imuPubPeriod == 0 {
				if report := imuRx.CurrentReport(); !report.Time.IsZero() {
					if err := br.PublishIMU(report); err != nil {
						fmt.Println("BRIDGE:", err)
					}
				}
			}
			if cnt%batteryPubPeriod == 0 {
				if err := br.PublishBattery(batt.Voltage(), batt.Averaged()); err != nil {
					fmt.Println("BRIDGE:", err)
				}
			}
			if led != nil {
				blink := uint32(ledBlinkTicks)
				if batt.Low() {
					blink = ledBlinkTicksAlarm
				}
				if cnt%blink == 0 {
					ledOn = !ledOn
					_ = led.Out(gpio.Level(ledOn))
				}
			}
			if cnt%faultCheckPeriod == 0 {
				for i, faulted := range drv.CheckFaults() {
					if faulted {
						fmt.Printf("MOTOR: driver %d fault pin active\n", i)
					}
				}
			}
		}
	}
}
