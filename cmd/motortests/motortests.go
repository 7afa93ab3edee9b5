// Command motortests exercises each driver channel open loop: it steps the
// power through a ramp and prints encoder counts and winding current so
// wiring and polarity can be checked with the wheels off the ground.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roverbot-team/roverbot/go-controller/pkg/motor"
)

func main() {
	board, err := motor.Open()
	if err != nil {
		fmt.Printf("Failed to open motor board: %v.\n", err)
		os.Exit(1)
	}
	defer board.Close()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-signals
		fmt.Println("Zeroing motors")
		for n := 0; n < motor.NumMotors; n++ {
			_ = board.Channel(n).SetPower(0)
		}
		board.Close()
		os.Exit(0)
	}()

	for n := 0; n < motor.NumMotors; n++ {
		ch := board.Channel(n)
		if err := ch.Init(); err != nil {
			fmt.Printf("Motor %d init failed: %v\n", n, err)
			os.Exit(1)
		}

		fmt.Printf("---- Motor %d ----\n", n)
		for _, power := range []int16{200, 400, 600, 400, 200, 0, -200, -400, -200, 0} {
			if err := ch.SetPower(power); err != nil {
				fmt.Printf("Set power failed: %v\n", err)
				break
			}
			time.Sleep(500 * time.Millisecond)

			cnt, err := ch.EncoderCnt()
			if err != nil {
				fmt.Printf("Encoder read failed: %v\n", err)
				continue
			}
			current, err := ch.WindingCurrent()
			if err != nil {
				fmt.Printf("Current read failed: %v\n", err)
				continue
			}
			fmt.Printf("power=%5d enc=%8d current=%.3fA\n", power, cnt, current)
		}

		if faults := board.CheckFaults(); faults[n] {
			fmt.Printf("Motor %d FAULT pin active\n", n)
		}
	}
}
