package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"clipforge/internal/advisor"
	"clipforge/internal/config"
	"clipforge/internal/encoder"
	"clipforge/internal/export"
	"clipforge/internal/history"
	"clipforge/internal/media"
	"clipforge/internal/preflight"
	"clipforge/internal/registry"
	"clipforge/internal/render"
)

const pollInterval = 500 * time.Millisecond

type exportFlags struct {
	output       string
	width        int
	height       int
	frameRate    int
	quality      string
	codec        string
	format       string
	duration     time.Duration
	videoBitrate int
	audioBitrate int
	brightness   int
	contrast     float64
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	flags := exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a synthetic timeline export and poll it to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, ctx, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file path (default: output_dir/export-<timestamp>)")
	cmd.Flags().IntVar(&flags.width, "width", 0, "Frame width (default: quality preset)")
	cmd.Flags().IntVar(&flags.height, "height", 0, "Frame height (default: quality preset)")
	cmd.Flags().IntVar(&flags.frameRate, "fps", 30, "Frame rate")
	cmd.Flags().StringVar(&flags.quality, "quality", "medium", "Quality tier: low, medium, high, ultra")
	cmd.Flags().StringVar(&flags.codec, "codec", "h264", "Video codec: h264, h265, vp9")
	cmd.Flags().StringVar(&flags.format, "format", "", "Container: mp4, webm, mkv (default: codec recommendation)")
	cmd.Flags().DurationVar(&flags.duration, "duration", 10*time.Second, "Timeline duration")
	cmd.Flags().IntVar(&flags.videoBitrate, "video-bitrate", 0, "Video bitrate in bps (default: advisor recommendation)")
	cmd.Flags().IntVar(&flags.audioBitrate, "audio-bitrate", 0, "Audio bitrate in bps")
	cmd.Flags().IntVar(&flags.brightness, "brightness", 0, "Brightness offset applied to every frame")
	cmd.Flags().Float64Var(&flags.contrast, "contrast", 1.0, "Contrast factor applied to every frame")

	return cmd
}

func runExport(cmd *cobra.Command, ctx *commandContext, flags exportFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	jobConfig, err := buildJobConfig(cfg, flags)
	if err != nil {
		return err
	}
	if need := int64(cfg.Export.MinFreeSpaceMiB) << 20; need > 0 {
		if err := preflight.CheckCapacity(jobConfig.OutputPath, need); err != nil {
			return err
		}
	}

	var store *history.Store
	if cfg.Export.HistoryEnabled {
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}
		store, err = history.Open(cmd.Context(), cfg.Paths.HistoryDB)
		if err != nil {
			return fmt.Errorf("open export history: %w", err)
		}
		defer store.Close()
	}

	var effects []render.Effect
	if flags.brightness != 0 {
		effects = append(effects, render.Brightness{Offset: flags.brightness})
	}
	if flags.contrast != 1.0 {
		effects = append(effects, render.Contrast{Factor: flags.contrast})
	}
	source := render.NewTimelineSource(flags.duration, 48000, 2, effects...)

	reg := registry.New(func() *export.Job {
		return export.NewJob(export.Deps{
			Encoders:          encoder.NewFileOpener(),
			Renderer:          source.Opener(),
			History:           store,
			Logger:            logger,
			UpdateEveryFrames: cfg.Export.ProgressUpdateFrames,
			AudioChunkMs:      cfg.Export.AudioChunkMs,
			LockSuffix:        cfg.Paths.LockSuffix,
		})
	}, logger)
	defer reg.Close(5 * time.Second)

	handle := reg.Create()
	job, ok := reg.Lookup(handle)
	if !ok {
		return errors.New("job registry rejected the new job")
	}
	if !job.SetConfig(jobConfig) {
		return fmt.Errorf("configuration rejected for %q (check dimensions, codec/container pairing, and output directory)", jobConfig.OutputPath)
	}
	if !job.Start() {
		return errors.New("export did not start")
	}

	signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pollJob(signalCtx, cmd, job)
	return reportOutcome(cmd, job)
}

func buildJobConfig(cfg *config.Config, flags exportFlags) (export.Config, error) {
	quality, err := media.ParseQuality(flags.quality)
	if err != nil {
		return export.Config{}, err
	}
	codec, err := media.ParseCodec(flags.codec)
	if err != nil {
		return export.Config{}, err
	}

	format := advisor.RecommendedFormat(codec)
	if flags.format != "" {
		format, err = media.ParseFormat(flags.format)
		if err != nil {
			return export.Config{}, err
		}
	}

	width, height := flags.width, flags.height
	if width == 0 && height == 0 {
		width, height = advisor.PresetResolution(quality)
	}

	output := flags.output
	if output == "" {
		if err := cfg.EnsureDirectories(); err != nil {
			return export.Config{}, err
		}
		name := fmt.Sprintf("export-%s%s", time.Now().Format("20060102-150405"), format.Extension())
		output = filepath.Join(cfg.Paths.OutputDir, name)
	}

	return export.Config{
		Width:        width,
		Height:       height,
		FrameRate:    flags.frameRate,
		Quality:      quality,
		Format:       format,
		Codec:        codec,
		OutputPath:   output,
		VideoBitrate: flags.videoBitrate,
		AudioBitrate: flags.audioBitrate,
	}, nil
}

// pollJob reads snapshots every 500ms until the job settles. Ctrl-C requests
// a cooperative cancel and keeps polling until the worker lands terminal.
func pollJob(ctx context.Context, cmd *cobra.Command, job *export.Job) {
	inline := isatty.IsTerminal(os.Stdout.Fd())
	printer := message.NewPrinter(language.English)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	interrupt := ctx.Done()
	for {
		select {
		case <-interrupt:
			interrupt = nil
			job.Cancel()
			if inline {
				cmd.Println()
			}
			cmd.Println("cancelling...")
		case <-ticker.C:
		}

		snap := job.Progress()
		line := printer.Sprintf("%6.1f%%  %s  frames %d/%d",
			snap.TotalProgress*100, snap.Status, snap.FramesEncoded, snap.TotalFrames)
		if snap.EstimatedRemainingSeconds > 0 {
			line += printer.Sprintf("  eta %.0fs", snap.EstimatedRemainingSeconds)
		}
		if inline {
			cmd.Printf("\r\033[K%s", line)
		} else {
			cmd.Println(line)
		}

		if snap.CurrentPhase.Terminal() {
			if inline {
				cmd.Println()
			}
			job.Wait(0)
			return
		}
	}
}

func reportOutcome(cmd *cobra.Command, job *export.Job) error {
	printer := message.NewPrinter(language.English)
	snap := job.Progress()

	switch snap.CurrentPhase {
	case export.PhaseComplete:
		cmd.Println(printer.Sprintf("export complete: %s (%d bytes, %d frames)",
			job.OutputPath(), job.FinalFileSize(), snap.FramesEncoded))
		return nil
	case export.PhaseCancelled:
		cmd.Println("export cancelled, partial output removed")
		return nil
	default:
		return fmt.Errorf("export failed: %s", job.ErrorMessage())
	}
}
