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

	"github.com/lixenwraith/cadence/audio"
	"github.com/lixenwraith/cadence/clock"
	"github.com/lixenwraith/cadence/core"
	"github.com/lixenwraith/cadence/engine"
	"github.com/lixenwraith/cadence/game"
	"github.com/lixenwraith/cadence/input"
	"github.com/lixenwraith/cadence/render"
	"github.com/lixenwraith/cadence/runstate"
	"github.com/lixenwraith/cadence/service"
	"github.com/lixenwraith/cadence/settings"
	"github.com/lixenwraith/cadence/status"
)

var (
	configFlag    = flag.String("config", "", "YAML settings file")
	threadingFlag = flag.String("threading", "", "Threading policy: FULL, SINGLE, OPTIMIZE")
	debugFlag     = flag.Bool("debug", false, "Write logs to logs/cadence.log")
	muteFlag      = flag.Bool("mute", false, "Run without audio output")
	stateFlag     = flag.String("state", "", "Initial game state (idle, script)")
	scriptFlag    = flag.String("script", "", "Lua file for the script game state")
)

func main() {
	// Panic Recovery: restore the terminal before reporting a main goroutine crash
	var screen tcell.Screen
	defer func() {
		if r := recover(); r != nil {
			if screen != nil {
				screen.Fini()
			}
			fmt.Fprintf(os.Stderr, "\n\x1b[31mCADENCE CRASHED: %v\x1b[0m\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()

	flag.Parse()

	if logFile := setupLogging(*debugFlag); logFile != nil {
		defer logFile.Close()
	}

	cfg, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}

	script, err := loadScript(*scriptFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read script: %v\n", err)
		os.Exit(1)
	}

	screen, err = tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create terminal screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize terminal: %v\n", err)
		os.Exit(1)
	}
	// Normal exit terminal cleanup
	defer screen.Fini()

	// Engine goroutines report through core.Go; restore the terminal first
	core.SetCrashHandler(func(r any) {
		screen.Fini()
		// Use \r\n for raw mode compatibility
		fmt.Fprintf(os.Stderr, "\r\n\x1b[31mCADENCE CRASHED: %v\x1b[0m\r\n", r)
		fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", debug.Stack())
		os.Exit(1)
	})

	metrics := status.NewRegistry()
	master := clock.NewPausableClock()
	rs := runstate.New(master)

	audioSub := audio.New(audio.SpeakerOutput(), rs)
	rs.OnTransition(func(from, to runstate.State) {
		log.Printf("[runstate] %s -> %s", from, to)
		// Cues are dropped while paused, so only the resume tone is audible
		if to == runstate.Normal {
			audioSub.Emit(audio.CueResume)
		}
	})

	inputSub := input.New(screen, rs, func() {
		log.Printf("[main] threading setting now %s", cfg.CycleThreading())
	})
	rs.AddDevice(inputSub)

	driver := game.NewDriver(game.DefaultRegistry(script), master, audioSub, metrics, game.WithKeys(inputSub))
	if err := driver.Switch(cfg.GameState()); err != nil {
		log.Printf("[main] %v, starting without a game state", err)
	}

	hud := render.NewHUD(screen, func() string { return rs.State().String() }, driver.Clock(), metrics)

	subsystems := service.NewRegistry()
	for _, sub := range []service.Subsystem{inputSub, hud, audioSub} {
		sub := sub
		if err := subsystems.Register(sub.Name(), func() (service.Subsystem, error) { return sub, nil }); err != nil {
			log.Printf("[main] %v", err)
		}
	}

	orchestrator := engine.New(engine.Deps{
		Settings:   cfg,
		Subsystems: subsystems,
		RunState:   rs,
		Master:     master,
		Logic:      driver,
		Metrics:    metrics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	watchReload(ctx, cfg)

	if err := orchestrator.Run(ctx); err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Engine failed: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the optional settings file, then applies flag overrides
func loadSettings() (*settings.Settings, error) {
	cfg := settings.New()
	if *configFlag != "" {
		loaded, err := settings.Load(*configFlag)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if *threadingFlag != "" {
		t, err := settings.ParseThreading(*threadingFlag)
		if err != nil {
			return nil, err
		}
		cfg.SetThreading(t)
	}
	if *stateFlag != "" {
		cfg.SetGameState(*stateFlag)
	}
	if *muteFlag {
		cfg.SetSubsystem("audio", audio.KeyMuted, true)
	}
	return cfg, nil
}

// loadScript returns the Lua source at path; empty path selects the built-in script
func loadScript(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
