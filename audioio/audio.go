// Package audioio reads reference recordings and writes synthesized signals
// as WAV or AIFF files.
package audioio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"gonum.org/v1/gonum/floats"
)

var IntMaxSignedValue = map[int]int{
	8:  127,
	16: 32767,
	24: 8388607,
	32: 2147483647,
}

type FileType int

const (
	TypeInvalid FileType = -1
	TypeAiff    FileType = 1
	TypeWave    FileType = 2
)

var ErrInvalidFileType = errors.New("invalid file type")

// frames moved per decoder or encoder call
const bufferLength = 4096

// Format describes the PCM layout of an audio file.
type Format struct {
	NumChans   int
	BitDepth   int
	SampleRate int
}

// DefaultFormat is used for output when no reference file is given.
func DefaultFormat(sampleRate int) Format {
	return Format{NumChans: 1, BitDepth: 16, SampleRate: sampleRate}
}

func (f Format) validate() error {
	if f.NumChans < 1 {
		return fmt.Errorf("channel count %d must be positive", f.NumChans)
	}
	if f.SampleRate < 1 {
		return fmt.Errorf("sample rate %d must be positive", f.SampleRate)
	}
	if IntMaxSignedValue[f.BitDepth] == 0 {
		return fmt.Errorf("bit depth %d is not supported", f.BitDepth)
	}
	return nil
}

type Reader interface {
	Open(bufferLength int) error
	Close()
	ReadNext() (int, int, error)
	ExtractChannel(channel int) (*audio.IntBuffer, error)
	Format() Format
}

type Writer interface {
	Create() error
	Close() error
	Write(buffer *audio.IntBuffer) error
}

// determines a filetype based on the given file extension, the file does not have to exist
func returnFileTypeFromExtension(filePath string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".aiff", ".aif":
		return TypeAiff, nil
	case ".wave", ".wav":
		return TypeWave, nil
	}

	return TypeInvalid, ErrInvalidFileType
}

// Reads the magic bytes of the given file and returns its type.
// File must exist on disk
func returnFileType(filePath string) (FileType, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return TypeInvalid, err
	}
	defer file.Close()

	headerBytes := make([]byte, 12)
	if _, err := file.Read(headerBytes); err != nil {
		return TypeInvalid, err
	}
	headerBytes8 := []byte{}
	headerBytes8 = append(headerBytes8, headerBytes[:4]...)
	headerBytes8 = append(headerBytes8, headerBytes[8:]...)

	if bytes.Equal(headerBytes8, []byte("FORMAIFF")) {
		return TypeAiff, nil
	} else if bytes.Equal(headerBytes8, []byte("RIFFWAVE")) {
		return TypeWave, nil
	}

	return TypeInvalid, ErrInvalidFileType
}

func NewAudioReader(filePath string) (Reader, error) {
	fileType, err := returnFileType(filePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	switch fileType {
	case TypeAiff:
		return &AiffReader{Filepath: filePath}, nil
	case TypeWave:
		return &WaveReader{Filepath: filePath}, nil
	}
	return nil, fmt.Errorf("audio reader doesn't implement filetype %d", fileType)
}

func NewAudioWriter(filePath string, format Format) (Writer, error) {
	fileType, err := returnFileTypeFromExtension(filePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	if err := format.validate(); err != nil {
		return nil, err
	}

	switch fileType {
	case TypeAiff:
		return &AiffWriter{Filepath: filePath, format: format}, nil
	case TypeWave:
		return &WaveWriter{Filepath: filePath, format: format}, nil
	}
	return nil, fmt.Errorf("audio writer doesn't implement filetype %d", fileType)
}

// ReadFormat returns the PCM layout of an existing WAV or AIFF file.
func ReadFormat(filePath string) (Format, error) {
	reader, err := NewAudioReader(filePath)
	if err != nil {
		return Format{}, err
	}
	if err := reader.Open(1); err != nil {
		return Format{}, err
	}
	defer reader.Close()

	return reader.Format(), nil
}

// ReadMono returns the first channel of a WAV or AIFF file scaled to
// [-1, 1].
func ReadMono(filePath string) ([]float64, Format, error) {
	reader, err := NewAudioReader(filePath)
	if err != nil {
		return nil, Format{}, err
	}
	if err := reader.Open(bufferLength); err != nil {
		return nil, Format{}, err
	}
	defer reader.Close()

	format := reader.Format()
	if IntMaxSignedValue[format.BitDepth] == 0 {
		return nil, format, fmt.Errorf("%s: bit depth %d is not supported", filePath, format.BitDepth)
	}
	scale := 1.0 / float64(IntMaxSignedValue[format.BitDepth])

	var samples []float64
	for {
		_, numFrames, readErr := reader.ReadNext()
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, format, fmt.Errorf("%s: %w", filePath, readErr)
		}
		if numFrames == 0 {
			break
		}

		channel, err := reader.ExtractChannel(0)
		if err != nil {
			return nil, format, err
		}
		for _, v := range channel.Data[:numFrames] {
			samples = append(samples, float64(v)*scale)
		}
		if readErr != nil {
			break
		}
	}

	return samples, format, nil
}

// WriteSignal writes samples (nominally in [-1, 1]) to filePath, copying
// them into every channel of format. With normalize set the peak is scaled
// to full scale first. Out of range values are clipped.
func WriteSignal(filePath string, samples []float64, format Format, normalize bool) (err error) {
	writer, err := NewAudioWriter(filePath, format)
	if err != nil {
		return err
	}
	if err := writer.Create(); err != nil {
		return fmt.Errorf("could not open audio file for writing: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
	}()

	gain := 1.0
	if normalize && len(samples) > 0 {
		if peak := floats.Norm(samples, math.Inf(1)); peak > 0 && !math.IsInf(peak, 0) {
			gain = 1.0 / peak
		}
	}

	maxValue := float64(IntMaxSignedValue[format.BitDepth])
	buffer := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: format.NumChans,
			SampleRate:  format.SampleRate,
		},
		SourceBitDepth: format.BitDepth,
	}

	for start := 0; start < len(samples); start += bufferLength {
		end := start + bufferLength
		if end > len(samples) {
			end = len(samples)
		}

		buffer.Data = make([]int, (end-start)*format.NumChans)
		for n := start; n < end; n++ {
			v := samples[n] * gain
			if math.IsNaN(v) {
				v = 0
			}
			value := int(math.Max(-maxValue, math.Min(maxValue, math.Round(v*maxValue))))
			interleave(buffer.Data, n-start, format.NumChans, value)
		}

		if err := writer.Write(buffer); err != nil {
			return fmt.Errorf("%s: %w", filePath, err)
		}
	}

	return nil
}

func interleave(data []int, frame, numChans, value int) {
	for channel := 0; channel < numChans; channel++ {
		data[frame*numChans+channel] = value
	}
}

// clipGuard clips every sample exceeding the maximum for the bit depth
// instead of letting the encoder have it.
func clipGuard(buffer *audio.IntBuffer, maxSampleValue int) {
	for i := 0; i < len(buffer.Data); i++ {
		if buffer.Data[i] > maxSampleValue {
			buffer.Data[i] = maxSampleValue
		} else if buffer.Data[i] < -maxSampleValue {
			buffer.Data[i] = -maxSampleValue
		}
	}
}

// extractChannel copies one channel out of an interleaved buffer. channel is
// zero indexed.
func extractChannel(readBuffer *audio.IntBuffer, numChans, channel int) (*audio.IntBuffer, error) {
	if numChans == 0 {
		return nil, errors.New("reader has no channels to extract")
	}
	if channel > numChans-1 {
		return nil, fmt.Errorf("requested channel (%d) is out of bounds 0-%d", channel, numChans-1)
	}

	buffer := &audio.IntBuffer{
		Format:         readBuffer.Format,
		Data:           make([]int, readBuffer.NumFrames()),
		SourceBitDepth: readBuffer.SourceBitDepth,
	}

	x := 0
	for i := channel; i < len(readBuffer.Data); i += numChans {
		buffer.Data[x] = readBuffer.Data[i]
		x++
	}

	return buffer, nil
}
