package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	CommandSynth   = "synth"
	CommandBatch   = "batch"
	CommandVersion = "version"
)

type Arguments struct {
	Command         string
	InputPath       string
	OutputPath      string
	ConfigPath      string
	ReferencePath   string
	ChartPath       string
	WriteComponents bool
	Normalize       bool
	Quiet           bool
	OutputDir       string
	Workers         int
	FramePaths      []string
}

var usage = "usage: gohnm <command> <args>\n\nAvailable Commands:\n\n    synth    synthesize one frame file into an audio file\n    batch    synthesize several frame files into a directory\n    version  print the version\n\nFor specific command options:\n\ngohnm <command> -h\n\n"

// Output receives flag usage and parse errors.
var Output io.Writer = os.Stderr

func missing(flagText, command string) error {
	return fmt.Errorf("Required argument missing:\n\n%s is required, for help:\n\ngohnm %s -h\n\n", flagText, command)
}

// ParseFlags parses the command line including the program name in args[0].
func ParseFlags(args []string) (*Arguments, error) {
	cmdError := errors.New(usage)

	if len(args) < 2 {
		return nil, cmdError
	}

	// synth flags
	synthCmd := flag.NewFlagSet(CommandSynth, flag.ContinueOnError)
	synthCmd.SetOutput(Output)
	synthInput := synthCmd.String("i", "", "input file: path to the YAML frame file")
	synthOutput := synthCmd.String("f", "", "output file: path to write the output WAV or AIFF. It will be overwritten if it exists")
	synthConfig := synthCmd.String("c", "", "config file: path to a YAML run configuration, defaults are used when empty")
	synthReference := synthCmd.String("r", "", "reference file: original recording, its format is used for output and the residual file is written")
	synthComponents := synthCmd.Bool("components", false, "write the harmonic, noise and transient parts next to the output")
	synthChart := synthCmd.String("chart", "", "chart file: path to write an HTML plot of the components")
	synthNormalize := synthCmd.Bool("n", false, "normalize flag: scale the output peak to full scale")
	synthQuiet := synthCmd.Bool("q", false, "quiet flag: suppress informational output")

	// batch flags
	batchCmd := flag.NewFlagSet(CommandBatch, flag.ContinueOnError)
	batchCmd.SetOutput(Output)
	batchConfig := batchCmd.String("c", "", "config file: path to a YAML run configuration, defaults are used when empty")
	batchDir := batchCmd.String("d", "", "output directory: one WAV file per frame file is written here")
	batchWorkers := batchCmd.Int("j", 0, "jobs: number of frame files synthesized at once, 0 uses every CPU")
	batchQuiet := batchCmd.Bool("q", false, "quiet flag: suppress the progress bar and summary")

	parsedArgs := &Arguments{Command: args[1]}

	switch args[1] {
	case CommandSynth:
		if err := synthCmd.Parse(args[2:]); err != nil {
			return nil, err
		}

		if len(*synthInput) == 0 {
			return nil, missing("-i <path to frame file>", CommandSynth)
		}
		if len(*synthOutput) == 0 {
			return nil, missing("-f <path to output file>", CommandSynth)
		}

		parsedArgs.InputPath, _ = filepath.Abs(*synthInput)
		parsedArgs.OutputPath, _ = filepath.Abs(*synthOutput)
		parsedArgs.ConfigPath = absOrEmpty(*synthConfig)
		parsedArgs.ReferencePath = absOrEmpty(*synthReference)
		parsedArgs.ChartPath = absOrEmpty(*synthChart)
		parsedArgs.WriteComponents = *synthComponents
		parsedArgs.Normalize = *synthNormalize
		parsedArgs.Quiet = *synthQuiet

		if err := checkOutputDir(filepath.Dir(parsedArgs.OutputPath)); err != nil {
			return nil, err
		}
	case CommandBatch:
		if err := batchCmd.Parse(args[2:]); err != nil {
			return nil, err
		}

		if len(*batchDir) == 0 {
			return nil, missing("-d <output directory>", CommandBatch)
		}
		if batchCmd.NArg() == 0 {
			return nil, missing("at least one frame file", CommandBatch)
		}
		if *batchWorkers < 0 {
			return nil, fmt.Errorf("jobs (%d) cannot be negative", *batchWorkers)
		}

		parsedArgs.OutputDir, _ = filepath.Abs(*batchDir)
		parsedArgs.ConfigPath = absOrEmpty(*batchConfig)
		parsedArgs.Workers = *batchWorkers
		parsedArgs.Quiet = *batchQuiet
		for _, path := range batchCmd.Args() {
			abs, _ := filepath.Abs(path)
			parsedArgs.FramePaths = append(parsedArgs.FramePaths, abs)
		}

		if err := checkOutputDir(parsedArgs.OutputDir); err != nil {
			return nil, err
		}
	case CommandVersion:
	default:
		return nil, cmdError
	}

	return parsedArgs, nil
}

func absOrEmpty(path string) string {
	if path == "" {
		return ""
	}
	abs, _ := filepath.Abs(path)
	return abs
}

func checkOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", dir)
	}
	return nil
}
