package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/yhkl-dev/nibble/config"
	"github.com/yhkl-dev/nibble/coverart"
	"github.com/yhkl-dev/nibble/device"
	"github.com/yhkl-dev/nibble/library"
	"github.com/yhkl-dev/nibble/player"
	"github.com/yhkl-dev/nibble/remote"
	"github.com/yhkl-dev/nibble/sequencer"
	"github.com/yhkl-dev/nibble/ui"
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fs := afero.NewOsFs()
	cfg, err := config.Load(fs, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := setupLogging(fs, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	if err := run(fs, cfg); err != nil {
		log.Printf("nibble exited with error: %v", err)
		fmt.Fprintln(os.Stderr, err)
		logFile.Close()
		os.Exit(1)
	}
	log.Println("nibble exited normally")
}

// setupLogging sends log output to a file; the terminal belongs to the UI
func setupLogging(fs afero.Fs, path string) (afero.File, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "nibble.log")
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return f, nil
}

func run(fs afero.Fs, cfg *config.Config) (err error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	book, err := library.Open(fs, cfg.Book.Path).Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load book: %w", err)
	}
	log.Printf("Loaded book %q with %d sections", book.Name, book.SectionCount)

	engine, err := newEngine(ctx, fs, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, engine.Close())
	}()

	resolver := player.NewResolver(fs, cfg.Player.Mode == config.ModeLocal, cfg.Player.AssetsDir)
	seq := sequencer.New(engine, resolver, sequencer.Options{
		SkipForward:  cfg.Player.SkipForward,
		SkipBackward: cfg.Player.SkipBackward,
		EndTolerance: cfg.Player.EndTolerance,
	})
	store := sequencer.NewStore(seq, sequencer.NewState(book))

	// headphones going away pause playback
	session := device.NewSession(cfg.Device.GetCheckInterval(), func() {
		log.Println("Audio output disconnected, pausing")
		store.Send(sequencer.Pause{})
	})
	if err := session.Activate(ctx); err != nil {
		log.Printf("Continuing without audio session: %v", err)
	}

	if cfg.Remote.Enabled {
		mpris := remote.NewMPRISHandler(cfg.Remote.Name, store, cfg.Player.Rates)
		mpris.RateLookup = engine.Rate
		mpris.OnQuit = func() error {
			cancel()
			return nil
		}
		store.Subscribe(mpris.Update)
		mpris.Start()
		defer mpris.Shutdown()
	}

	app := ui.NewApp(ctx, cfg, store, coverart.NewConverter(fs, cfg.Player.AssetsDir), cancel)

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := store.Run(ctx); err != nil {
			log.Printf("Store stopped: %v", err)
		}
	})
	if cfg.Device.Monitor {
		wg.Go(func() { session.Monitor(ctx) })
	}
	wg.Go(func() {
		<-ctx.Done()
		app.Stop()
	})

	store.Send(sequencer.Appear{})

	uiErr := app.Run()
	cancel()
	wg.Wait()
	return uiErr
}

func newEngine(ctx context.Context, fs afero.Fs, cfg *config.Config) (player.Engine, error) {
	switch cfg.Player.Engine {
	case config.EngineBeep:
		return player.NewBeepEngine(ctx, fs, cfg.Player.Rates, cfg.Player.GetTickInterval()), nil
	default:
		e, err := player.NewMPVEngine(ctx, cfg.Player.Rates, cfg.Player.GetTickInterval())
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}
