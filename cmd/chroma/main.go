package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/CaptainCaffeine/Chroma/chroma/backend"
	"github.com/CaptainCaffeine/Chroma/chroma/emu"
	"github.com/CaptainCaffeine/Chroma/chroma/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "chroma"
	app.Description = "A Game Boy, Game Boy Color and Game Boy Advance emulator"
	app.Usage = "chroma [options] <rom_path>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "m",
			Usage: "Force console variant: dmg, cgb or agb (default: detect from header)",
		},
		cli.StringFlag{
			Name:  "l",
			Usage: "Log level: trace or regs",
		},
		cli.IntFlag{
			Name:  "s",
			Usage: "Integer window scale, 1-15",
			Value: 2,
		},
		cli.BoolFlag{
			Name:  "f",
			Usage: "Start fullscreen",
		},
		cli.StringFlag{
			Name:  "filter",
			Usage: "Audio resampler: iir or nearest",
			Value: "iir",
		},
		cli.BoolFlag{
			Name:  "multicart",
			Usage: "Force the MBC1M multicart bank layout",
		},
		cli.StringFlag{
			Name:  "record-audio",
			Usage: "Record the audio stream to a WAV file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without a window (requires --frames)",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("chroma", "error", err)
		os.Exit(1)
	}
}

func parseOptions(c *cli.Context) (emu.Options, error) {
	opts := emu.Options{
		LogLevel:    c.String("l"),
		Scale:       c.Int("s"),
		Fullscreen:  c.Bool("f"),
		Filter:      c.String("filter"),
		Multicart:   c.Bool("multicart"),
		RecordAudio: c.String("record-audio"),
	}

	switch c.String("m") {
	case "":
		opts.Variant = emu.VariantAuto
	case "dmg":
		opts.Variant = emu.VariantDMG
	case "cgb":
		opts.Variant = emu.VariantCGB
	case "agb":
		opts.Variant = emu.VariantAGB
	default:
		return opts, fmt.Errorf("unrecognized console variant %q", c.String("m"))
	}

	switch opts.LogLevel {
	case "", "trace", "regs":
	default:
		return opts, fmt.Errorf("unrecognized log level %q", opts.LogLevel)
	}

	if opts.Scale < 1 || opts.Scale > 15 {
		return opts, fmt.Errorf("scale must be between 1 and 15, got %d", opts.Scale)
	}

	switch opts.Filter {
	case "iir", "nearest":
	default:
		return opts, fmt.Errorf("unrecognized audio filter %q", opts.Filter)
	}

	return opts, nil
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowAppHelp(c)
		return errors.New("no ROM path provided")
	}
	romPath := c.Args().Get(0)

	opts, err := parseOptions(c)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.LogLevel != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	emulator, err := emu.New(romPath, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := emulator.Shutdown(); err != nil {
			slog.Error("Shutdown", "error", err)
		}
	}()

	var be backend.Backend
	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames with a positive value")
		}
		be = backend.NewHeadless(frames)
		emulator.SetLimiter(timing.NewNoOpLimiter())
	} else {
		be = backend.NewSDL2()
	}

	frame := emulator.Frame()
	config := backend.Config{
		Title:      "chroma",
		Width:      frame.Width,
		Height:     frame.Height,
		Scale:      opts.Scale,
		Fullscreen: opts.Fullscreen,
	}

	if err := be.Init(config); err != nil {
		if c.Bool("headless") {
			return err
		}
		// No SDL2 in this build; fall back to the terminal frontend.
		slog.Warn("Falling back to terminal frontend", "reason", err)
		be = backend.NewTerminal()
		if err := be.Init(config); err != nil {
			return err
		}
	}
	defer be.Close()

	return loop(emulator, be)
}

func loop(emulator *emu.Emulator, be backend.Backend) error {
	for !emulator.Quit() {
		samples, err := emulator.StepFrame()
		if err != nil {
			return err
		}

		events, err := be.Update(emulator.Frame(), samples)
		if err != nil {
			return err
		}
		for _, ev := range events {
			emulator.HandleAction(ev.Action, ev.Pressed)
		}

		emulator.Wait()
	}
	return nil
}
