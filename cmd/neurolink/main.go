package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/neurolink/bridge"
	"github.com/lixenwraith/neurolink/classifier"
	"github.com/lixenwraith/neurolink/config"
	"github.com/lixenwraith/neurolink/feedback"
	"github.com/lixenwraith/neurolink/mindwave"
	"github.com/lixenwraith/neurolink/monitor"
	"github.com/lixenwraith/neurolink/recorder"
	"github.com/lixenwraith/neurolink/service"
	"github.com/lixenwraith/neurolink/status"
)

var (
	configFlag   = flag.String("config", "", "Config file path (default ./"+config.DefaultConfigPath+")")
	debugFlag    = flag.Bool("debug", false, "Write a debug log under ./logs")
	headlessFlag = flag.Bool("headless", false, "Run without the terminal dashboard")
	muteFlag     = flag.Bool("mute", false, "Disable audio cues")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadAuto(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if f := setupLogging(*debugFlag || cfg.Debug.LogFile != "", *headlessFlag, cfg.Debug.LogFile); f != nil {
		defer f.Close()
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "neurolink: %v\n", err)
		os.Exit(1)
	}
}

// buildHub registers every service around one shared registry
func buildHub(reg *status.Registry) (*service.Hub, *mindwave.Service, *classifier.Service, error) {
	logger := log.Default()
	headset := mindwave.NewService(logger, reg)
	assessor := classifier.NewService(headset, logger)

	hub := service.NewHub()
	for _, svc := range []service.Service{
		status.NewService(reg),
		headset,
		assessor,
		recorder.NewService(headset, logger),
		feedback.NewService(headset, assessor, nil, logger),
		bridge.NewService(headset, logger),
	} {
		if err := hub.Register(svc); err != nil {
			return nil, nil, nil, err
		}
	}
	return hub, headset, assessor, nil
}

func run(cfg *config.Config) error {
	reg := status.NewRegistry()
	hub, headset, assessor, err := buildHub(reg)
	if err != nil {
		return err
	}

	if err := hub.InitAll(cfg, *muteFlag); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var screen tcell.Screen
	if !*headlessFlag {
		if screen, err = tcell.NewScreen(); err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		defer screen.Fini()

		// Restore the terminal before a crash report reaches stderr
		defer func() {
			if r := recover(); r != nil {
				screen.Fini()
				fmt.Fprintf(os.Stderr, "\nneurolink crashed: %v\n%s\n", r, debug.Stack())
				os.Exit(1)
			}
		}()
	}

	if err := hub.StartAll(); err != nil {
		return err
	}
	defer func() {
		if err := hub.StopAll(); err != nil {
			log.Printf("neurolink: stop: %v", err)
		}
	}()
	log.Printf("neurolink: services %v", hub.Order())

	if screen == nil {
		<-ctx.Done()
		return nil
	}

	dash := monitor.New(screen, monitor.Config{
		Session:    headset.Session(),
		Calibrator: headset.Calibrator(),
		Controller: headset,
		Assessor:   assessor.Assessor(),
		Logger:     log.Default(),
	})
	sub := headset.Events().Subscribe(dash.Listener())
	defer sub.Unsubscribe()

	dash.Run(ctx)
	return nil
}
