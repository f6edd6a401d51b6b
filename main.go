package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gohnm/audioio"
	"gohnm/charter"
	"gohnm/cli"
	"gohnm/config"
	"gohnm/framefile"
	"gohnm/hnm"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

var Version = ""

func main() {
	// parse cli flags/arguments
	parsedArgs, err := cli.ParseFlags(os.Args)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if parsedArgs.Command == cli.CommandVersion {
		if Version == "" {
			Version = "dev"
		}
		fmt.Println("gohnm", Version)
		return
	}

	cfg, err := config.Load(parsedArgs.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel.SlogLevel()}))
	slog.SetDefault(logger)

	synthesizer, err := hnm.NewSynthesizer(cfg.Synthesis, hnm.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch parsedArgs.Command {
	case cli.CommandSynth:
		err = runSynth(parsedArgs, cfg, synthesizer)
	case cli.CommandBatch:
		err = runBatch(parsedArgs, cfg, synthesizer)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "\n >>> Synthesis error:", err, "<<<")
		os.Exit(1)
	}
}

func runSynth(args *cli.Arguments, cfg *config.Config, synthesizer *hnm.Synthesizer) error {
	file, err := framefile.Load(args.InputPath)
	if err != nil {
		return err
	}
	sig := file.Signal()

	format := audioio.DefaultFormat(sig.SamplingRateInHz)
	format.BitDepth = cfg.Output.BitDepth
	if args.ReferencePath != "" {
		if format, err = audioio.ReadFormat(args.ReferencePath); err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		if format.SampleRate != sig.SamplingRateInHz {
			slog.Warn("reference sample rate differs from the frame file, writing at the frame file rate",
				"reference", format.SampleRate, "frames", sig.SamplingRateInHz)
			format.SampleRate = sig.SamplingRateInHz
		}
	}

	if !args.Quiet {
		fmt.Print(cfg.Synthesis.String())
		fmt.Printf("%24s   %d\n", "Frames:", len(sig.Frames))
		fmt.Printf("%24s   %d\n", "Transient Segments:", len(sig.Transients))
		fmt.Printf("%24s   %d\n", "Number of Channels:", format.NumChans)
		fmt.Printf("%24s   %d\n", "Bit Depth:", format.BitDepth)
		fmt.Printf("%24s   %d\n", "Sample Rate:", format.SampleRate)
		fmt.Printf("%24s   %.2f s\n", "Input Duration:", sig.OriginalDurationInSeconds)
		if mapping := file.TimeMapping(); mapping != nil && mapping.DurationInSeconds > 0 {
			fmt.Printf("%24s   %.2f s\n", "Output Duration:", mapping.DurationInSeconds)
		}
	}

	result, err := synthesizer.Synthesize(sig, file.TimeMapping())
	if err != nil {
		return err
	}

	normalize := args.Normalize || cfg.Output.Normalize
	if err := audioio.WriteSignal(args.OutputPath, result.Output, format, normalize); err != nil {
		return err
	}

	if args.WriteComponents || cfg.Output.WriteComponents {
		if err := writeComponents(args.OutputPath, result, format, normalize); err != nil {
			return err
		}
	}

	if args.ReferencePath != "" {
		original, _, err := audioio.ReadMono(args.ReferencePath)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		residualPath := componentPath(args.OutputPath, "_origMinusHarmonic")
		if err := audioio.WriteSignal(residualPath, residual(original, result.HarmonicPart), format, normalize); err != nil {
			return err
		}
	}

	chartPath := args.ChartPath
	if chartPath == "" && cfg.Output.Chart {
		chartPath = strings.TrimSuffix(args.OutputPath, filepath.Ext(args.OutputPath)) + ".html"
	}
	if chartPath != "" {
		err := charter.RenderComponents(chartPath, filepath.Base(args.InputPath), result.SamplingRateInHz, map[string][]float64{
			"output":    result.Output,
			"harmonic":  result.HarmonicPart,
			"noise":     result.NoisePart,
			"transient": result.TransientPart,
		})
		if err != nil {
			return err
		}
	}

	if !args.Quiet {
		fmt.Printf("%24s   %.2f s\n", "Synthesized:", result.DurationInSeconds())
		fmt.Println("\nDone!")
	}
	return nil
}

func writeComponents(outputPath string, result *hnm.Synthesized, format audioio.Format, normalize bool) error {
	components := []struct {
		suffix  string
		samples []float64
	}{
		{"_harmonic", result.HarmonicPart},
		{"_noise", result.NoisePart},
		{"_transient", result.TransientPart},
	}

	for _, c := range components {
		if err := audioio.WriteSignal(componentPath(outputPath, c.suffix), c.samples, format, normalize); err != nil {
			return err
		}
	}
	return nil
}

// componentPath inserts suffix before the extension of outputPath.
func componentPath(outputPath, suffix string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + suffix + ext
}

// residual returns original minus harmonic over the length of original.
func residual(original, harmonic []float64) []float64 {
	out := make([]float64, len(original))
	copy(out, original)
	for n := 0; n < len(out) && n < len(harmonic); n++ {
		out[n] -= harmonic[n]
	}
	return out
}

func runBatch(args *cli.Arguments, cfg *config.Config, synthesizer *hnm.Synthesizer) error {
	workers := args.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	bar := progressbar.NewOptions(
		len(args.FramePaths),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("synthesizing..."),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(!args.Quiet),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]=[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	var g errgroup.Group
	g.SetLimit(workers)
	for _, framePath := range args.FramePaths {
		g.Go(func() error {
			defer bar.Add(1)

			file, err := framefile.Load(framePath)
			if err != nil {
				return err
			}
			sig := file.Signal()

			result, err := synthesizer.Synthesize(sig, file.TimeMapping())
			if err != nil {
				return fmt.Errorf("%s: %w", framePath, err)
			}

			format := audioio.DefaultFormat(sig.SamplingRateInHz)
			format.BitDepth = cfg.Output.BitDepth
			outputPath := batchOutputPath(args.OutputDir, framePath)

			if err := audioio.WriteSignal(outputPath, result.Output, format, cfg.Output.Normalize); err != nil {
				return err
			}
			if cfg.Output.WriteComponents {
				return writeComponents(outputPath, result, format, cfg.Output.Normalize)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if !args.Quiet {
		fmt.Printf("\n\n%24s   %d\n", "Files Synthesized:", len(args.FramePaths))
		fmt.Printf("%24s   %s\n", "Output Directory:", args.OutputDir)
	}
	return nil
}

// batchOutputPath names the WAV file written for framePath in dir.
func batchOutputPath(dir, framePath string) string {
	base := filepath.Base(framePath)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".wav")
}
