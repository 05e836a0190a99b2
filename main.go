package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	log.SetFlags(log.LstdFlags)
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     "alerter",
		Short:   "Status marquee for an RGB pixel matrix",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisplay(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", DEFAULT_CONFIG_PATH, "path to alerter.toml")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Poll the status endpoints and drive the display",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDisplay(configPath)
			},
		},
		&cobra.Command{
			Use:   "fetch",
			Short: "Run one poll cycle and print the resulting status as JSON",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runFetch(cmd, configPath)
			},
		},
		&cobra.Command{
			Use:   "icons",
			Short: "List the icon catalog",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIcons(cmd, configPath)
			},
		},
	)
	return root
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func runDisplay(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fonts, err := loadFonts(cfg.Fonts)
	if err != nil {
		return err
	}

	icons, err := loadIconCatalog(cfg.Icons)
	if err != nil {
		return err
	}
	scheduler := NewIconScheduler(icons, cfg.Icons.Probability, newRand(cfg.Icons.Seed), nil)

	sink, err := newFrameSink(cfg.Display)
	if err != nil {
		return err
	}
	matrix := NewMatrix(cfg.Display.Width, cfg.Display.Height, sink)
	defer matrix.Close()

	store := NewStatusStore(Message{Colour: LOADING_COLOUR, Text: cfg.Text.Loading}, nil)

	poller := NewPoller(cfg.Poll, cfg.Text, store, nil, nil, nil)
	go poller.Run(ctx)

	renderer := NewRenderer(matrix, store, fonts, scheduler, nil)

	if cfg.HTTP.Enabled {
		app := newPreviewApp(matrix, store)
		go httpServer(app, cfg.HTTP.Listen)
		defer app.Shutdown()
	}

	if cfg.Input.Device != "" {
		go monitorInput(ctx, cfg.Input.Device, renderer.RequestIcon)
	}

	log.Printf("display %dx%d, backend %s, %d icons", cfg.Display.Width, cfg.Display.Height, cfg.Display.Backend, len(icons))
	renderer.Run(ctx, cfg.Display.frameInterval())
	log.Println("shutting down")
	return nil
}

func runFetch(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store := NewStatusStore(Message{Colour: LOADING_COLOUR, Text: cfg.Text.Loading}, nil)
	poller := NewPoller(cfg.Poll, cfg.Text, store, nil, nil, nil)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := poller.PollOnce(ctx); err != nil {
		log.Printf("poll cycle failed: %v", err)
	}

	out, err := json.MarshalIndent(store.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runIcons(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	icons, err := loadIconCatalog(cfg.Icons)
	if err != nil {
		return err
	}
	for _, icon := range icons {
		b := icon.Image.Bounds()
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %2dx%-2d  %s\n", icon.Name, b.Dx(), b.Dy(), icon.Caption)
	}
	return nil
}
