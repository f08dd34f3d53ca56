package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"regexp"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gdamore/tcell"

	"github.com/wheelcraft/wheelcraft/internal/config"
	"github.com/wheelcraft/wheelcraft/internal/engine"
	"github.com/wheelcraft/wheelcraft/internal/midi"
	"github.com/wheelcraft/wheelcraft/internal/mouseinput"
	"github.com/wheelcraft/wheelcraft/internal/overlay"
	"github.com/wheelcraft/wheelcraft/internal/resolved"
	"github.com/wheelcraft/wheelcraft/internal/statusapi"
	"github.com/wheelcraft/wheelcraft/internal/sysnotify"
	"github.com/wheelcraft/wheelcraft/internal/tui"
)

var CLI struct {
	Serve struct {
		Config     string `help:"Path to the mapping config file" type:"path" name:"config" short:"c" required:""`
		Predefines string `help:"Path to a predefines file" type:"path" name:"predefines"`
		Debug      bool   `help:"Enable verbose logging" short:"d"`
	} `cmd:"" help:"Run the mapping engine"`

	Validate struct {
		Config     string `help:"Path to the mapping config file" type:"path" name:"config" short:"c" required:""`
		Predefines string `help:"Path to a predefines file" type:"path" name:"predefines"`
	} `cmd:"" help:"Load and resolve a config without running the engine"`

	EnumerateMidi  struct{} `cmd:"" help:"List currently present MIDI ports"`
	EnumerateMouse struct{} `cmd:"" help:"List currently present mouse-capable input devices"`

	MonitorMidi struct {
		Device string `help:"Regex matching the device name to monitor" arg:""`
	} `cmd:"" help:"Print decoded MIDI messages from a device as they arrive"`

	MonitorMouse struct {
		Device string `help:"Regex matching the device name to monitor" arg:""`
	} `cmd:"" help:"Print classified mouse events from a device as they arrive"`

	LearnMidi struct {
		Device string `help:"Regex matching the device name to learn from" arg:""`
	} `cmd:"" help:"Print each distinct control key seen on a MIDI device, for building a config"`
}

func main() {
	log.SetFlags(0)
	ctx := kong.Parse(&CLI)

	switch ctx.Command() {
	case "serve":
		runServe()
	case "validate":
		runValidate()
	case "enumerate-midi":
		runEnumerateMidi()
	case "enumerate-mouse":
		runEnumerateMouse()
	case "monitor-midi <device>":
		runMonitorMidi()
	case "monitor-mouse <device>":
		runMonitorMouse()
	case "learn-midi <device>":
		runLearnMidi()
	default:
		log.Fatalf("unknown command %q", ctx.Command())
	}
}

func checkLinuxSystemRequirements() {
	if _, err := os.Stat("/dev/uinput"); err != nil {
		log.Println("warning: /dev/uinput not found; force feedback and virtual joysticks will not work")
		log.Println("run: sudo modprobe uinput")
	}

	if os.Geteuid() == 0 {
		return
	}
	u, err := user.Current()
	if err != nil {
		return
	}
	group, err := user.LookupGroup("input")
	if err != nil {
		return
	}
	gids, err := u.GroupIds()
	if err != nil {
		return
	}
	for _, gid := range gids {
		if gid == group.Gid {
			return
		}
	}
	log.Println("warning: current user is not in the 'input' group")
	log.Println("run: sudo usermod -a -G input $USER, then log out and back in")
}

func loadResolved(configPath, predefinesPath string) (*config.Resolved, error) {
	cfg, err := config.Load(configPath, predefinesPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	out, err := config.Resolve(cfg, resolved.NewIDAllocator())
	if err != nil {
		return nil, fmt.Errorf("resolving config: %w", err)
	}
	return out, nil
}

func runValidate() {
	out, err := loadResolved(CLI.Validate.Config, CLI.Validate.Predefines)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	fmt.Printf("configuration valid: %d joysticks, %d mappings\n", len(out.Joysticks), len(out.Mappings))
}

func runServe() {
	checkLinuxSystemRequirements()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	reloadCh := make(chan struct{}, 1)

runLoop:
	for {
		out, err := loadResolved(CLI.Serve.Config, CLI.Serve.Predefines)
		if err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}

		eng, err := engine.New(out, CLI.Serve.Debug)
		if err != nil {
			log.Fatalf("failed to build engine: %v", err)
		}

		engCtx, engCancel := context.WithCancel(context.Background())

		var watcher *config.ReloadWatcher
		if out.HotReload() {
			watcher, err = config.NewReloadWatcher(CLI.Serve.Config, CLI.Serve.Debug, nil)
			if err != nil {
				log.Printf("hot-reload disabled: %v", err)
			} else {
				go watcher.Run(engCtx, 250*time.Millisecond)
				go func() {
					for range watcher.Changed() {
						if _, err := loadResolved(CLI.Serve.Config, CLI.Serve.Predefines); err != nil {
							log.Printf("reload rejected, keeping current configuration: %v", err)
							continue
						}
						select {
						case reloadCh <- struct{}{}:
						default:
						}
					}
				}()
			}
		}

		var httpServers []*http.Server
		if out.StatusAPI.Enabled {
			srv := statusapi.NewServer(eng, func() error {
				if _, err := loadResolved(CLI.Serve.Config, CLI.Serve.Predefines); err != nil {
					return err
				}
				select {
				case reloadCh <- struct{}{}:
				default:
				}
				return nil
			}, out.StatusAPI.JWTSecret)
			httpServers = append(httpServers, startHTTPServer(out.StatusAPI.Addr, srv.Handler(), "status API"))
		}
		if out.Overlay.Enabled {
			srv := overlay.NewServer(&eng.Steering, time.Second/60)
			httpServers = append(httpServers, startHTTPServer(out.Overlay.Addr, srv.Handler(), "overlay"))
		}

		runErr := make(chan error, 1)
		go func() { runErr <- eng.Run(engCtx) }()

		sysnotify.Ready()
		go sysnotify.WatchdogLoop(engCtx)

		select {
		case <-stop:
			log.Println("shutting down")
			sysnotify.Stopping()
			engCancel()
			<-runErr
			eng.Stop(true)
			for _, s := range httpServers {
				s.Close()
			}
			break runLoop

		case <-reloadCh:
			log.Println("reloading configuration")
			engCancel()
			<-runErr
			eng.Stop(false)
			for _, s := range httpServers {
				s.Close()
			}
			continue runLoop

		case err := <-runErr:
			if engCtx.Err() == nil {
				log.Printf("engine exited unexpectedly: %v", err)
			}
			eng.Stop(true)
			for _, s := range httpServers {
				s.Close()
			}
			break runLoop
		}
	}
}

func startHTTPServer(addr string, handler http.Handler, label string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		log.Printf("%s listening on %s", label, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("%s server error: %v", label, err)
		}
	}()
	return srv
}

func runEnumerateMidi() {
	devices, err := midi.EnumerateDevices()
	if err != nil {
		log.Fatalf("enumerating midi devices: %v", err)
	}
	for _, d := range devices {
		fmt.Printf("%s\t%s\n", d.Name, d.Path)
	}
}

func runEnumerateMouse() {
	devices, err := mouseinput.EnumerateDevices()
	if err != nil {
		log.Fatalf("enumerating mouse devices: %v", err)
	}
	for _, d := range devices {
		fmt.Printf("%s\t%s\n", d.Name, d.Path)
	}
}

func runMonitorMidi() {
	re, err := regexp.Compile(CLI.MonitorMidi.Device)
	if err != nil {
		log.Fatalf("invalid device regex: %v", err)
	}
	devices, err := midi.EnumerateDevices()
	if err != nil {
		log.Fatalf("enumerating midi devices: %v", err)
	}
	names := midi.MatchDevices(re, devices)
	if len(names) == 0 {
		log.Fatalf("no midi device matched %q", CLI.MonitorMidi.Device)
	}

	mgr := midi.NewManager(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, name := range names {
		if err := mgr.Open(ctx, name); err != nil {
			log.Printf("opening %q: %v", name, err)
		}
	}

	view, err := tui.Open(fmt.Sprintf("monitoring MIDI devices matching %q (Esc to quit)", CLI.MonitorMidi.Device))
	if err != nil {
		log.Fatalf("opening terminal view: %v", err)
	}
	defer view.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case msg := <-mgr.Messages():
			view.Log(fmt.Sprintf("%s: type=%v channel=%d value=%d", msg.DeviceName, msg.Type, msg.Channel, midi.Value(msg)))
		case ev := <-view.Events():
			switch e := ev.(type) {
			case *tcell.EventKey:
				if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC {
					return
				}
			case *tcell.EventResize:
				view.HandleResize()
			}
		case <-stop:
			return
		}
	}
}

func runMonitorMouse() {
	re, err := regexp.Compile(CLI.MonitorMouse.Device)
	if err != nil {
		log.Fatalf("invalid device regex: %v", err)
	}
	devices, err := mouseinput.EnumerateDevices()
	if err != nil {
		log.Fatalf("enumerating mouse devices: %v", err)
	}

	mgr := mouseinput.NewManager(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	matched := 0
	for _, info := range devices {
		if !re.MatchString(info.Name) {
			continue
		}
		matched++
		if err := mgr.Open(ctx, info.Name, info); err != nil {
			log.Printf("opening %q: %v", info.Name, err)
		}
	}
	if matched == 0 {
		log.Fatalf("no mouse device matched %q", CLI.MonitorMouse.Device)
	}

	view, err := tui.Open(fmt.Sprintf("monitoring mouse devices matching %q (Esc to quit)", CLI.MonitorMouse.Device))
	if err != nil {
		log.Fatalf("opening terminal view: %v", err)
	}
	defer view.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case ev := <-mgr.Events():
			view.Log(fmt.Sprintf("%s: control=%v value=%d", ev.DeviceKey, ev.ControlType, ev.Value))
		case tev := <-view.Events():
			switch e := tev.(type) {
			case *tcell.EventKey:
				if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC {
					return
				}
			case *tcell.EventResize:
				view.HandleResize()
			}
		case <-stop:
			return
		}
	}
}

func runLearnMidi() {
	re, err := regexp.Compile(CLI.LearnMidi.Device)
	if err != nil {
		log.Fatalf("invalid device regex: %v", err)
	}
	devices, err := midi.EnumerateDevices()
	if err != nil {
		log.Fatalf("enumerating midi devices: %v", err)
	}
	names := midi.MatchDevices(re, devices)
	if len(names) == 0 {
		log.Fatalf("no midi device matched %q", CLI.LearnMidi.Device)
	}

	mgr := midi.NewManager(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, name := range names {
		if err := mgr.Open(ctx, name); err != nil {
			log.Printf("opening %q: %v", name, err)
		}
	}

	learner := midi.NewLearner()
	fmt.Println("move a control to learn it, Ctrl+C to stop")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case msg := <-mgr.Messages():
			if entry, ok := learner.Observe(msg); ok {
				fmt.Printf("%s: %s\n", entry.DeviceName, entry.ControlKey)
			}
		case <-stop:
			return
		}
	}
}

