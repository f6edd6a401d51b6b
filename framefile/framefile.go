// Package framefile reads HNM frame parameters stored as YAML.
package framefile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gohnm/hnm"

	"gopkg.in/yaml.v3"
)

// NoiseType names the noise representation of a frame.
type NoiseType string

const (
	NoiseWaveform       NoiseType = "waveform"
	NoiseLpc            NoiseType = "lpc"
	NoisePseudoHarmonic NoiseType = "pseudo-harmonic"
)

// IsValid reports whether t is a recognised noise type.
func (t NoiseType) IsValid() bool {
	switch t {
	case NoiseWaveform, NoiseLpc, NoisePseudoHarmonic:
		return true
	}
	return false
}

// File is the on-disk form of an analyzed utterance.
type File struct {
	SamplingRateInHz              int                `yaml:"sampling_rate_hz"`
	DurationInSeconds             float64            `yaml:"duration_s"`
	IncludeZerothHarmonic         bool               `yaml:"include_zeroth_harmonic"`
	UseHarmonicAmplitudesDirectly bool               `yaml:"harmonic_amplitudes_direct"`
	UseNoiseAmplitudesDirectly    bool               `yaml:"noise_amplitudes_direct"`
	CepstrumWarping               hnm.Warping        `yaml:"cepstrum_warping"`
	NoiseF0InHz                   float64            `yaml:"noise_f0_hz"`
	PreemphasisCoefNoise          float64            `yaml:"preemphasis_noise"`
	Frames                        []Frame            `yaml:"frames"`
	Transients                    []TransientSegment `yaml:"transients"`
	Mapping                       *TimeMapping       `yaml:"time_mapping"`
}

type Frame struct {
	Time                          float64    `yaml:"t"`
	F0InHz                        float64    `yaml:"f0"`
	MaximumFrequencyOfVoicingInHz float64    `yaml:"max_fv"`
	Transient                     bool       `yaml:"transient"`
	Harmonics                     *Harmonics `yaml:"harmonics"`
	Noise                         *Noise     `yaml:"noise"`
}

type Harmonics struct {
	Amplitudes []float64 `yaml:"amplitudes"`
	Phases     []float64 `yaml:"phases"`
	Ceps       []float64 `yaml:"ceps"`
}

// Noise carries the fields of every noise type; Type selects which are read.
type Noise struct {
	Type    NoiseType `yaml:"type"`
	Samples []float64 `yaml:"samples"`
	Coeffs  []float64 `yaml:"coeffs"`
	Gain    float64   `yaml:"gain"`
	Energy  float64   `yaml:"energy"`
	Ceps    []float64 `yaml:"ceps"`
}

type TransientSegment struct {
	StartTimeInSeconds float64   `yaml:"start_s"`
	Waveform           []float64 `yaml:"waveform"`
}

type TimeMapping struct {
	Times             []float64 `yaml:"times"`
	DurationInSeconds float64   `yaml:"duration_s"`
}

// Load reads and validates the frame file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("framefile: open %q: %w", path, err)
	}
	defer f.Close()

	file, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("framefile: parse %q: %w", path, err)
	}
	return file, nil
}

// LoadFromReader decodes a frame file from r and validates it.
func LoadFromReader(r io.Reader) (*File, error) {
	file := &File{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(file); err != nil {
		return nil, fmt.Errorf("framefile: decode yaml: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return file, nil
}

// Validate checks the structure of the file. Value-level problems such as
// non-monotonic times are left to the synthesizer.
func (f *File) Validate() error {
	var errs []error

	if f.SamplingRateInHz <= 0 {
		errs = append(errs, fmt.Errorf("sampling_rate_hz %d must be positive", f.SamplingRateInHz))
	}
	if !f.CepstrumWarping.IsValid() {
		errs = append(errs, fmt.Errorf("cepstrum_warping %q is invalid; valid values: none, bark, mel", f.CepstrumWarping))
	}

	for i, frame := range f.Frames {
		if frame.Noise == nil {
			continue
		}
		prefix := fmt.Sprintf("frames[%d].noise", i)
		switch frame.Noise.Type {
		case NoiseWaveform:
			if len(frame.Noise.Samples) == 0 {
				errs = append(errs, fmt.Errorf("%s: waveform noise needs samples", prefix))
			}
		case NoisePseudoHarmonic:
			if len(frame.Noise.Ceps) == 0 {
				errs = append(errs, fmt.Errorf("%s: pseudo-harmonic noise needs ceps", prefix))
			}
		case NoiseLpc:
		default:
			errs = append(errs, fmt.Errorf("%s.type %q is invalid; valid values: waveform, lpc, pseudo-harmonic", prefix, frame.Noise.Type))
		}
	}

	if f.Mapping != nil && len(f.Mapping.Times) != len(f.Frames) {
		errs = append(errs, fmt.Errorf("time_mapping.times has %d entries for %d frames", len(f.Mapping.Times), len(f.Frames)))
	}

	return errors.Join(errs...)
}

// Signal converts the file to the synthesizer's representation.
func (f *File) Signal() *hnm.Signal {
	sig := &hnm.Signal{
		SamplingRateInHz:              f.SamplingRateInHz,
		OriginalDurationInSeconds:     f.DurationInSeconds,
		IncludeZerothHarmonic:         f.IncludeZerothHarmonic,
		UseHarmonicAmplitudesDirectly: f.UseHarmonicAmplitudesDirectly,
		UseNoiseAmplitudesDirectly:    f.UseNoiseAmplitudesDirectly,
		CepstrumWarping:               f.CepstrumWarping,
		NoiseF0InHz:                   f.NoiseF0InHz,
		PreemphasisCoefNoise:          f.PreemphasisCoefNoise,
		Frames:                        make([]hnm.Frame, len(f.Frames)),
		Transients:                    make([]hnm.TransientSegment, len(f.Transients)),
	}

	for i, frame := range f.Frames {
		sig.Frames[i] = hnm.Frame{
			AnalysisTimeInSeconds:         frame.Time,
			F0InHz:                        frame.F0InHz,
			MaximumFrequencyOfVoicingInHz: frame.MaximumFrequencyOfVoicingInHz,
			Transient:                     frame.Transient,
			Noise:                         frame.Noise.model(),
		}
		if h := frame.Harmonics; h != nil {
			sig.Frames[i].Harmonics = &hnm.Harmonics{
				Amplitudes: h.Amplitudes,
				Phases:     h.Phases,
				Ceps:       h.Ceps,
			}
		}
	}

	for i, segment := range f.Transients {
		sig.Transients[i] = hnm.TransientSegment{
			StartTimeInSeconds: segment.StartTimeInSeconds,
			Waveform:           segment.Waveform,
		}
	}

	return sig
}

// TimeMapping returns the stored synthesis times, or nil when the file
// has none.
func (f *File) TimeMapping() *hnm.TimeMapping {
	if f.Mapping == nil {
		return nil
	}
	return &hnm.TimeMapping{
		Times:             f.Mapping.Times,
		DurationInSeconds: f.Mapping.DurationInSeconds,
	}
}

func (n *Noise) model() hnm.Noise {
	if n == nil {
		return nil
	}
	switch n.Type {
	case NoiseWaveform:
		return hnm.WaveformNoise{Samples: n.Samples}
	case NoiseLpc:
		return hnm.LpcNoise{Coeffs: n.Coeffs, Gain: n.Gain, AverageSampleEnergy: n.Energy}
	case NoisePseudoHarmonic:
		return hnm.PseudoHarmonicNoise{Ceps: n.Ceps}
	}
	return nil
}
