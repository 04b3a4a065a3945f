// Command thinkgear-sim serves synthetic headset data on the ThinkGear Connector socket
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lixenwraith/neurolink/thinkgear"
)

var (
	addrFlag       = flag.String("addr", thinkgear.DefaultConfig().Address, "Address to listen on")
	rawRateFlag    = flag.Int("raw-rate", 512, "Raw EEG samples per second, 0 disables raw output")
	seedFlag       = flag.Uint64("seed", 1, "Generator seed")
	poorSignalFlag = flag.Int("poor-signal", 0, "Poor signal level reported in records (200 = no contact)")
	blinkFlag      = flag.Float64("blink", 0.1, "Blink probability per record")
)

func main() {
	flag.Parse()

	cfg := thinkgear.DefaultConfig()
	cfg.Address = *addrFlag
	cfg.Logger = log.New(os.Stderr, "thinkgear-sim ", log.LstdFlags)

	srv := thinkgear.NewServer(cfg)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
	defer srv.Stop()
	cfg.Logger.Printf("listening on %s", srv.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := thinkgear.NewSynthetic(thinkgear.SyntheticConfig{
		RawRate:        *rawRateFlag,
		RecordInterval: time.Second,
		BlinkChance:    *blinkFlag,
		PoorSignal:     *poorSignalFlag,
		Seed:           *seedFlag,
	})
	if err := gen.Run(ctx, srv); err != nil {
		cfg.Logger.Printf("stream: %v", err)
	}
}
