package audioio

import (
	"errors"
	"os"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

type AiffReader struct {
	Filepath        string
	ReadBuffer      *audio.IntBuffer
	NumSampleFrames int
	Duration        float64
	format          Format
	decoder         *aiff.Decoder
	fileIo          *os.File
}

type AiffWriter struct {
	Filepath       string
	format         Format
	encoder        *aiff.Encoder
	maxSampleValue int
	fileIo         *os.File
}

func (ar *AiffReader) Format() Format {
	return ar.format
}

// bufferLength: how many frames to read at one time
func (ar *AiffReader) Open(bufferLength int) error {
	var err error

	ar.fileIo, err = os.Open(ar.Filepath)
	if err != nil {
		return err
	}

	ar.decoder = aiff.NewDecoder(ar.fileIo)
	ar.decoder.ReadInfo()

	if ar.decoder.NumChans == 0 {
		ar.fileIo.Close()
		return errors.New("AiffReader.decoder.NumChans is 0")
	}
	if ar.decoder.SampleRate == 0 {
		ar.fileIo.Close()
		return errors.New("AiffReader.decoder.SampleRate is 0")
	}
	if ar.decoder.BitDepth == 0 {
		ar.fileIo.Close()
		return errors.New("AiffReader.decoder.BitDepth is 0")
	}

	ar.format = Format{
		NumChans:   int(ar.decoder.NumChans),
		BitDepth:   int(ar.decoder.BitDepth),
		SampleRate: int(ar.decoder.SampleRate),
	}
	ar.NumSampleFrames = int(ar.decoder.NumSampleFrames)

	duration, err := ar.decoder.Duration()
	if err != nil {
		ar.fileIo.Close()
		return err
	}
	ar.Duration = duration.Seconds()

	ar.ReadBuffer = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: ar.format.NumChans,
			SampleRate:  ar.format.SampleRate,
		},
		Data:           make([]int, bufferLength*ar.format.NumChans),
		SourceBitDepth: ar.format.BitDepth,
	}

	return nil
}

// channel is zero indexed
func (ar *AiffReader) ExtractChannel(channel int) (*audio.IntBuffer, error) {
	return extractChannel(ar.ReadBuffer, ar.format.NumChans, channel)
}

func (ar *AiffReader) Close() {
	ar.fileIo.Close()
}

// numSamples is the number of samples read across all channels
// numFrames is the number of samples per channel
func (ar *AiffReader) ReadNext() (numSamples, numFrames int, err error) {
	numSamples, err = ar.decoder.PCMBuffer(ar.ReadBuffer)
	if ar.format.BitDepth == 8 {
		// 8-bit AIFF is two's complement but decodes as unsigned bytes
		for i, v := range ar.ReadBuffer.Data[:numSamples] {
			ar.ReadBuffer.Data[i] = int(int8(uint8(v)))
		}
	}
	numFrames = numSamples / ar.format.NumChans
	return
}

func (aw *AiffWriter) Create() error {
	var err error

	aw.fileIo, err = os.Create(aw.Filepath)
	if err != nil {
		return err
	}

	aw.encoder = aiff.NewEncoder(
		aw.fileIo,
		aw.format.SampleRate,
		aw.format.BitDepth,
		aw.format.NumChans,
	)
	aw.maxSampleValue = IntMaxSignedValue[aw.format.BitDepth]

	return nil
}

func (aw *AiffWriter) Close() error {
	err := aw.encoder.Close()
	if closeErr := aw.fileIo.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (aw *AiffWriter) Write(buffer *audio.IntBuffer) error {
	clipGuard(buffer, aw.maxSampleValue)
	return aw.encoder.Write(buffer)
}
