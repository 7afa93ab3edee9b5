// Command drivectl is a keyboard teleop for bench testing: it publishes
// velocity commands to the controller over redis, re-sending the last
// command fast enough to keep the fail-safe quiet.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	redisServer = flag.String("redis_server", "127.0.0.1", "Redis server address")
	redisPort   = flag.Int("redis_port", 6379, "Redis server port")
	linearStep  = flag.Float64("linear_step", 0.1, "Linear speed step in m/s")
	angularStep = flag.Float64("angular_step", 0.3, "Angular speed step in rad/s")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", *redisServer, *redisPort),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Println("Redis unreachable:", err)
		os.Exit(1)
	}

	var mu sync.Mutex
	var linear, angular float64

	// Re-send the current command at 10Hz so the controller's input
	// timeout never fires while we are driving.
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				payload := fmt.Sprintf("%g %g", linear, angular)
				mu.Unlock()
				if err := rdb.Publish(ctx, "cmd_vel", payload).Err(); err != nil {
					fmt.Println("Publish failed:", err)
				}
			}
		}
	}()

	fmt.Println("w/s: faster/slower  a/d: turn left/right  x: stop  q: quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		for _, key := range strings.TrimSpace(scanner.Text()) {
			mu.Lock()
			switch key {
			case 'w':
				linear += *linearStep
			case 's':
				linear -= *linearStep
			case 'a':
				angular += *angularStep
			case 'd':
				angular -= *angularStep
			case 'x':
				linear, angular = 0, 0
			case 'q':
				mu.Unlock()
				_ = rdb.Publish(ctx, "cmd_vel", "0 0").Err()
				return
			}
			fmt.Printf("linear=%.2f m/s angular=%.2f rad/s\n", linear, angular)
			mu.Unlock()
		}
	}
}
