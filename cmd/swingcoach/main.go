package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/swingcoach/internal/capture"
	"github.com/ayusman/swingcoach/internal/config"
	"github.com/ayusman/swingcoach/internal/detector"
	"github.com/ayusman/swingcoach/internal/hook"
	"github.com/ayusman/swingcoach/internal/server"
	"github.com/ayusman/swingcoach/internal/server/api"
	"github.com/ayusman/swingcoach/internal/session"
	"github.com/ayusman/swingcoach/internal/store"
	"github.com/ayusman/swingcoach/internal/tray"
)

func main() {
	var (
		configPath = flag.String("config", "", "tuning JSON file (default: "+config.DefaultConfigPath+" if present)")
		dbPath     = flag.String("db", "", "SQLite database path (default: ~/.swingcoach/swingcoach.db)")
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		cameraID   = flag.Int("camera", 0, "capture device ID")
		videoFile  = flag.String("video", "", "replay a recorded video instead of a capture device")
		noCamera   = flag.Bool("no-camera", false, "only accept frames posted to /api/frames")
		withTray   = flag.Bool("tray", false, "show the system tray menu")
		hookDir    = flag.String("hooks", "", "rep event hook directory (default: ~/.swingcoach/hooks)")
		hookWait   = flag.Duration("hook-timeout", 5*time.Second, "maximum run time of one hook")
	)
	flag.Parse()

	fmt.Println("Swing Coach - Kettlebell Rep Counter")

	tuning, err := loadTuning(*configPath)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	// Initialize the store
	if *dbPath == "" {
		*dbPath, err = defaultDBPath()
		if err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}
	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	tuning, err = api.LoadTuning(st, tuning)
	if err != nil {
		log.Printf("Ignoring saved tuning: %v", err)
		tuning = config.DefaultTuningConfig()
	}

	sessCfg := session.Config{Store: st, Tuning: tuning}
	if !*noCamera {
		det, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
		if err != nil {
			log.Printf("MediaPipe not available (%v), accepting posted frames only", err)
		} else {
			camCfg := capture.DefaultConfig()
			camCfg.DeviceID = *cameraID
			camCfg.File = *videoFile
			camCfg.FPS = tuning.GetCaptureFPS()
			sessCfg.Camera = capture.NewCamera(camCfg)
			sessCfg.Detector = det
			log.Printf("Using MediaPipe pose detection on %s", camCfg)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess := session.New(sessCfg)
	if err := sess.Start(ctx); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	defer sess.Stop()

	// Rep event hooks
	if *hookDir == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			*hookDir = filepath.Join(homeDir, ".swingcoach", "hooks")
		}
	}
	hooks := hook.NewManager(*hookDir)
	if err := hooks.Discover(); err != nil {
		log.Printf("Failed to discover hooks: %v", err)
	}
	if n := len(hooks.List()); n > 0 {
		log.Printf("Loaded %d hooks from %s", n, hooks.HookDir())
		dispatcher := hook.NewDispatcher(hooks, hook.NewExecutor(*hookWait), hook.DefaultQueueSize)
		sess.Subscribe(dispatcher.Handle)
		go dispatcher.Run(ctx)
	}

	// Find web directory
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Session:   sess,
	})
	defer srv.Close()

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			cancel()
		}
	}()

	if !*withTray {
		<-ctx.Done()
		return
	}

	tr := tray.New()
	sess.Subscribe(tr.Update)
	tr.OnPause(sess.SetPaused)
	tr.OnReset(sess.Reset)
	tr.OnSettings(func() { openBrowser("http://localhost" + *addr) })
	tr.OnQuit(cancel)

	go func() {
		<-ctx.Done()
		tr.Quit()
	}()

	// systray needs the main goroutine
	tr.Run()
}

// loadTuning reads the tuning file named on the command line, falling back
// to the defaults file and then the built-in defaults.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path != "" {
		cfg, err := config.LoadTuningConfig(path)
		if err != nil {
			return nil, err
		}
		return config.DefaultTuningConfig().Merge(cfg), nil
	}

	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		cfg, err := config.LoadTuningConfig(config.DefaultConfigPath)
		if err != nil {
			return nil, err
		}
		return config.DefaultTuningConfig().Merge(cfg), nil
	}

	return config.DefaultTuningConfig(), nil
}

func defaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dbDir := filepath.Join(homeDir, ".swingcoach")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dbDir, "swingcoach.db"), nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.swingcoach/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".swingcoach", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
