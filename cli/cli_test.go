package cli

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "gohnm/testing_utilities"
)

func TestMain(m *testing.M) {
	Output = io.Discard
	os.Exit(m.Run())
}

func TestParseSynthFlags(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")

	tests := map[string]struct {
		args     []string
		expected *Arguments
		errText  string
	}{
		"minimal": {
			args: []string{"gohnm", "synth", "-i", "frames.yaml", "-f", out},
			expected: &Arguments{
				Command:    CommandSynth,
				InputPath:  abs("frames.yaml"),
				OutputPath: out,
			},
		},
		"every option": {
			args: []string{"gohnm", "synth", "-i", "frames.yaml", "-f", out, "-c", "run.yaml", "-r", "ref.aif", "-components", "-chart", "c.html", "-n", "-q"},
			expected: &Arguments{
				Command:         CommandSynth,
				InputPath:       abs("frames.yaml"),
				OutputPath:      out,
				ConfigPath:      abs("run.yaml"),
				ReferencePath:   abs("ref.aif"),
				ChartPath:       abs("c.html"),
				WriteComponents: true,
				Normalize:       true,
				Quiet:           true,
			},
		},
		"missing input": {
			args:    []string{"gohnm", "synth", "-f", out},
			errText: "-i <path to frame file> is required",
		},
		"missing output": {
			args:    []string{"gohnm", "synth", "-i", "frames.yaml"},
			errText: "-f <path to output file> is required",
		},
		"output directory does not exist": {
			args:    []string{"gohnm", "synth", "-i", "frames.yaml", "-f", filepath.Join(dir, "nothere", "out.wav")},
			errText: "output directory does not exist",
		},
		"unknown flag": {
			args:    []string{"gohnm", "synth", "-x"},
			errText: "flag provided but not defined",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			parsed, err := ParseFlags(tc.args)
			if tc.errText != "" {
				Assert(t, err != nil && strings.Contains(err.Error(), tc.errText), "expected %q, got %v", tc.errText, err)
				return
			}
			Ok(t, err)
			Equals(t, tc.expected, parsed)
		})
	}
}

func TestParseBatchFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	Ok(t, os.WriteFile(file, nil, 0o644))

	tests := map[string]struct {
		args     []string
		expected *Arguments
		errText  string
	}{
		"frames and jobs": {
			args: []string{"gohnm", "batch", "-c", "run.yaml", "-d", dir, "-j", "3", "-q", "a.yaml", "b.yaml"},
			expected: &Arguments{
				Command:    CommandBatch,
				ConfigPath: abs("run.yaml"),
				OutputDir:  dir,
				Workers:    3,
				Quiet:      true,
				FramePaths: []string{abs("a.yaml"), abs("b.yaml")},
			},
		},
		"no frame files": {
			args:    []string{"gohnm", "batch", "-d", dir},
			errText: "at least one frame file is required",
		},
		"missing directory flag": {
			args:    []string{"gohnm", "batch", "a.yaml"},
			errText: "-d <output directory> is required",
		},
		"directory is a file": {
			args:    []string{"gohnm", "batch", "-d", file, "a.yaml"},
			errText: "not a directory",
		},
		"negative jobs": {
			args:    []string{"gohnm", "batch", "-d", dir, "-j", "-2", "a.yaml"},
			errText: "cannot be negative",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			parsed, err := ParseFlags(tc.args)
			if tc.errText != "" {
				Assert(t, err != nil && strings.Contains(err.Error(), tc.errText), "expected %q, got %v", tc.errText, err)
				return
			}
			Ok(t, err)
			Equals(t, tc.expected, parsed)
		})
	}
}

func TestParseCommands(t *testing.T) {
	_, err := ParseFlags([]string{"gohnm"})
	Assert(t, err != nil && strings.HasPrefix(err.Error(), "usage: gohnm"), "expected usage, got %v", err)

	_, err = ParseFlags([]string{"gohnm", "stretch"})
	Assert(t, err != nil && strings.HasPrefix(err.Error(), "usage: gohnm"), "expected usage, got %v", err)

	parsed, err := ParseFlags([]string{"gohnm", "version"})
	Ok(t, err)
	Equals(t, CommandVersion, parsed.Command)

	_, err = ParseFlags([]string{"gohnm", "synth", "-h"})
	Assert(t, errors.Is(err, flag.ErrHelp), "expected help, got %v", err)
}

func abs(path string) string {
	p, _ := filepath.Abs(path)
	return p
}
