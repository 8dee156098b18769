package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"murmur/audio"
	"murmur/beep"
	"murmur/clipboard"
	"murmur/config"
	"murmur/doctor"
	"murmur/hotkey"
	"murmur/log"
	"murmur/login"
	"murmur/output"
	"murmur/shortcut"
	"murmur/shutdown"
	"murmur/transcriber"
	"murmur/tray"
	"murmur/update"
)

var version = "dev"

var cfg config.Config

var lastTextMu sync.Mutex
var lastText string

var pipeline *Pipeline
var shutdownOnce sync.Once

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if pipeline != nil {
			pipeline.Shutdown()
		}
		if sum := runStats.Summary(); sum != "" {
			log.Info("transcription_stats " + sum)
		}
		log.Close()
		tray.Quit()
		if tuiProgram != nil {
			tuiProgram.Quit()
		}
		os.Exit(0)
	})
}

// initCrashLog points runtime panics at crash_log.txt before any CGO
// or device code runs. run() re-points it if -logpath changes the dir.
func initCrashLog() {
	dir, err := log.ResolveDir("")
	if err != nil {
		return
	}
	log.SetDir(dir)
	if log.EnsureDir() != nil {
		return
	}
	openCrashLog()
}

func openCrashLog() {
	path := filepath.Join(log.Dir(), "crash_log.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
}

// traySink mirrors session status onto the tray icon.
type traySink struct{}

func (traySink) RecordingStart(string)  { tray.SetRecording(true) }
func (traySink) RecordingStop()         { tray.SetRecording(false) }
func (traySink) RecordingTick(float64)  {}
func (traySink) AudioLevel(float64)     {}
func (traySink) NoVoiceWarning(on bool) { tray.SetWarning(on) }
func (traySink) ModeLine(string)        {}
func (traySink) DeviceLine(string)      {}
func (traySink) EngineError(msg string) { tray.SetError(msg) }
func (traySink) Transcription(text string, _ float64, noSpeech bool) {
	if noSpeech || text == "" {
		return
	}
	lastTextMu.Lock()
	lastText = text
	lastTextMu.Unlock()
	tray.SetLastTranscription(len(text))
}

func modeLineText(c config.Config) string {
	mode := "push-to-talk"
	if c.ContinuousMode {
		mode = "continuous"
	}
	return fmt.Sprintf("[%s | whisper %s (%s)]", mode, c.WhisperModel, c.Language)
}

// makeSource builds a capture source per the configured backend. The
// config is read at session start, so device switches apply to the
// next recording.
func makeSource() (audio.Source, error) {
	switch cfg.AudioBackend {
	case "arecord":
		return audio.NewArecord(cfg.AudioDevice), nil
	default:
		return audio.NewNative(cfg.AudioDevice, audio.EngineRate), nil
	}
}

func runUpdate() {
	if version == "dev" {
		fmt.Println("Dev build, cannot check for updates.")
		os.Exit(0)
	}
	fmt.Printf("murmur %s, checking for updates...\n", version)
	rel, err := update.CheckLatest(version)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if rel == nil {
		fmt.Println("Already up to date.")
		os.Exit(0)
	}
	fmt.Printf("Update available: %s -> %s\n", version, rel.Version)
	fmt.Print("Continue? [y/N] ")
	var answer string
	fmt.Scanln(&answer)
	if answer != "y" && answer != "Y" {
		fmt.Println("Aborted.")
		os.Exit(0)
	}
	fmt.Printf("Downloading %s...\n", rel.Version)
	if err := update.Apply(rel); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated to %s\n", rel.Version)
	os.Exit(0)
}

func run() {
	if len(os.Args) > 1 && os.Args[1] == "update" {
		runUpdate()
		return
	}

	setupFlag := flag.Bool("setup", false, "Pick a microphone and save it to the config")
	deviceFlag := flag.String("device", "", "Capture from the named microphone")
	continuousFlag := flag.Bool("continuous", false, "Transcribe while speaking instead of on stop")
	outputFlag := flag.String("output", "", "Delivery method: type, clipboard, or paste")
	modelFlag := flag.String("model", "", "Whisper model: tiny, base, small, medium, or large")
	langFlag := flag.String("lang", "", "Language code for transcription (e.g. en, es, fr)")
	gainFlag := flag.Float64("gain", 0, "Microphone gain multiplier")
	backendFlag := flag.String("backend", "", "Audio backend: auto or arecord")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	hybridFlag := flag.Bool("hybrid", false, "Enable hybrid tap+hold recording mode")
	longPressFlag := flag.Duration("longpress", 350*time.Millisecond, "Long-press threshold for PTT vs tap (e.g., 350ms)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	var cfgErr error
	cfg, cfgErr = config.Load()

	// Flag overrides apply to this run only; the config file is the
	// durable store.
	if *deviceFlag != "" {
		cfg.AudioDevice = *deviceFlag
	}
	if *continuousFlag {
		cfg.ContinuousMode = true
	}
	if *outputFlag != "" {
		cfg.OutputMethod = *outputFlag
	}
	if *modelFlag != "" {
		cfg.WhisperModel = *modelFlag
	}
	if *langFlag != "" {
		cfg.Language = *langFlag
	}
	if *gainFlag > 0 {
		cfg.AudioGain = *gainFlag
	}
	if *backendFlag != "" {
		cfg.AudioBackend = *backendFlag
	}
	cfg.Clamp()

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	if *logPathFlag != "" {
		openCrashLog()
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", cfgErr)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(cfg.ToggleKey, engineSettings(), cfg.EngineEndpoint, cfg.WhisperCLI))
	}

	chord, err := shortcut.Parse(cfg.ToggleKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: bad toggle_key %q: %v\n", cfg.ToggleKey, err)
		os.Exit(1)
	}
	hotkeyLabel = chord.String()

	if *setupFlag {
		catalog, err := audio.Catalog()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
			os.Exit(1)
		}
		dev, err := audio.SelectDevice(catalog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
		} else if dev != nil {
			cfg.AudioDevice = dev.Name
			if err := config.Save(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
			}
		}
	}

	// Daemonize in non-TUI mode: re-exec in background, return the
	// shell prompt.
	if !*tuiFlag && os.Getenv("_MURMUR_BG") == "" {
		args := os.Args[1:]
		if cfg.AudioDevice != "auto" && *deviceFlag == "" {
			args = append(args, "-device", cfg.AudioDevice)
		}
		exe, _ := os.Executable()
		cmd := exec.Command(exe, args...)
		cmd.Env = append(os.Environ(), "_MURMUR_BG=1")
		devnull, _ := os.Open(os.DevNull)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
		if err := cmd.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	engine := transcriber.NewEngine(transcriber.DefaultFactory(cfg.EngineEndpoint, cfg.WhisperCLI))
	defer engine.Close()
	sink := output.NewSink()

	if *testFlag {
		runTestMode(flag.Args(), engine, sink)
		return
	}

	if cfg.OutputMethod == "type" || cfg.OutputMethod == "paste" {
		if err := clipboard.Init(); err != nil {
			fmt.Printf("Warning: synthetic input init failed: %v\n", err)
			fmt.Println("Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}

	events := multiSink{traySink{}}
	if *tuiFlag {
		events = append(events, tuiSink{})
	}
	pipeline = NewPipeline(&cfg, makeSource, engine, sink, events)

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()
		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown()
		}()
	}

	tray.OnCopyLast(func() {
		lastTextMu.Lock()
		text := lastText
		lastTextMu.Unlock()
		if text != "" {
			clipboard.Copy(text)
		}
	})
	tray.OnRecord(func() { pipeline.Toggle() }, func() { pipeline.Toggle() })
	tray.SetBTCheck(audio.IsBluetooth)
	tray.SetLogin(login.Enabled())
	tray.OnLogin(func(on bool) error {
		if on {
			return login.Enable()
		}
		return login.Disable()
	})
	tray.SetContinuous(cfg.ContinuousMode)
	// Tray callbacks run on the systray goroutine; config writes go
	// through the pipeline lock so a live session never sees them.
	tray.OnContinuous(func(on bool) {
		snap := pipeline.UpdateConfig(func(c *config.Config) { c.ContinuousMode = on })
		if err := config.Save(snap); err != nil {
			log.Warnf("saving config: %v", err)
		}
		events.ModeLine(modeLineText(snap))
	})
	if catalog, err := audio.Catalog(); err == nil && len(catalog) > 0 {
		names := make([]string, len(catalog))
		for i := range catalog {
			names[i] = catalog[i].Name
		}
		tray.SetDevices(names, cfg.AudioDevice, func(name string) {
			snap := pipeline.UpdateConfig(func(c *config.Config) { c.AudioDevice = name })
			if err := config.Save(snap); err != nil {
				log.Warnf("saving config: %v", err)
			}
			log.Info("device_switch: " + name)
			events.DeviceLine("mic: " + name)
		})
	}
	trayQuit := tray.Init()

	// Poll for device changes (hotplug)
	go func() {
		var last []string
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			catalog, err := audio.Catalog()
			if err != nil {
				continue
			}
			names := make([]string, len(catalog))
			for i := range catalog {
				names[i] = catalog[i].Name
			}
			if slices.Equal(last, names) {
				continue
			}
			last = names
			tray.RefreshDevices(names, pipeline.Config().AudioDevice)
		}
	}()

	update.StartBackgroundCheck(version, log.Dir(), func(rel update.Release) {
		log.Info("update_available: " + rel.Version)
		logToTUI("Update available: %s (run \"murmur update\")", rel.Version)
		tray.SetUpdateAvailable(rel.Version)
	})

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		select {
		case <-sigChan:
		case <-trayQuit:
		}
		gracefulShutdown()
	}()

	go beep.Init()

	hk := hotkey.New(chord)
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	events.ModeLine(modeLineText(cfg))
	events.DeviceLine("mic: " + cfg.AudioDevice)

	if *hybridFlag {
		hy := hotkey.NewHybrid(hk, *longPressFlag)
		pipeline.SetToggleProbe(hy.IsToggle)
		for {
			select {
			case ev := <-hy.Start():
				log.Info("hotkey_start_" + string(ev.Mode))
				if !pipeline.Listening() {
					pipeline.Toggle()
				}
			case <-hy.StopChan():
				if pipeline.Listening() {
					pipeline.Toggle()
				}
			}
		}
	}
	for {
		<-hk.Keydown()
		log.Info("hotkey_down")
		pipeline.Toggle()
	}
}

func engineSettings() transcriber.Settings {
	return transcriber.Settings{
		Model:            cfg.WhisperModel,
		Device:           cfg.Device,
		ComputeType:      cfg.ComputeType,
		Language:         cfg.Language,
		SilenceThreshold: cfg.SilenceThreshold,
		AudioThreshold:   cfg.AudioThreshold,
		GPUMemoryLimit:   cfg.GPUMemoryLimit,
	}
}
