package audioio

import (
	"errors"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// 8-bit WAV samples are unsigned with silence at 128
const wavUnsignedOffset = 128

type WaveReader struct {
	Filepath        string
	ReadBuffer      *audio.IntBuffer
	NumSampleFrames int
	Duration        float64
	format          Format
	decoder         *wav.Decoder
	fileIo          *os.File
}

type WaveWriter struct {
	Filepath       string
	format         Format
	encoder        *wav.Encoder
	maxSampleValue int
	fileIo         *os.File
}

func (wr *WaveReader) Format() Format {
	return wr.format
}

// bufferLength: how many frames to read at one time
func (wr *WaveReader) Open(bufferLength int) error {
	var err error

	wr.fileIo, err = os.Open(wr.Filepath)
	if err != nil {
		return err
	}

	wr.decoder = wav.NewDecoder(wr.fileIo)
	wr.decoder.ReadInfo()

	if err := wr.decoder.Err(); err != nil {
		wr.fileIo.Close()
		return err
	}
	if wr.decoder.NumChans == 0 {
		wr.fileIo.Close()
		return errors.New("WaveReader.decoder.NumChans is 0")
	}
	if wr.decoder.SampleRate == 0 {
		wr.fileIo.Close()
		return errors.New("WaveReader.decoder.SampleRate is 0")
	}
	if wr.decoder.BitDepth == 0 {
		wr.fileIo.Close()
		return errors.New("WaveReader.decoder.BitDepth is 0")
	}

	wr.format = Format{
		NumChans:   int(wr.decoder.NumChans),
		BitDepth:   int(wr.decoder.BitDepth),
		SampleRate: int(wr.decoder.SampleRate),
	}

	duration, err := wr.decoder.Duration()
	if err != nil {
		wr.fileIo.Close()
		return err
	}
	wr.Duration = duration.Seconds()
	wr.NumSampleFrames = int(wr.Duration * float64(wr.format.SampleRate))

	wr.ReadBuffer = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: wr.format.NumChans,
			SampleRate:  wr.format.SampleRate,
		},
		Data:           make([]int, bufferLength*wr.format.NumChans),
		SourceBitDepth: wr.format.BitDepth,
	}

	return nil
}

// channel is zero indexed
func (wr *WaveReader) ExtractChannel(channel int) (*audio.IntBuffer, error) {
	return extractChannel(wr.ReadBuffer, wr.format.NumChans, channel)
}

func (wr *WaveReader) Close() {
	wr.fileIo.Close()
}

// numSamples is the number of samples read across all channels
// numFrames is the number of samples per channel
func (wr *WaveReader) ReadNext() (numSamples, numFrames int, err error) {
	numSamples, err = wr.decoder.PCMBuffer(wr.ReadBuffer)
	if wr.format.BitDepth == 8 {
		shiftOffsetBinary(wr.ReadBuffer.Data[:numSamples], -wavUnsignedOffset)
	}
	numFrames = numSamples / wr.format.NumChans
	return
}

func (wr *WaveWriter) Create() error {
	var err error

	wr.fileIo, err = os.Create(wr.Filepath)
	if err != nil {
		return err
	}

	wr.encoder = wav.NewEncoder(
		wr.fileIo,
		wr.format.SampleRate,
		wr.format.BitDepth,
		wr.format.NumChans,
		1, // Linear PCM
	)
	wr.maxSampleValue = IntMaxSignedValue[wr.format.BitDepth]

	return nil
}

func (wr *WaveWriter) Close() error {
	err := wr.encoder.Close()
	if closeErr := wr.fileIo.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (wr *WaveWriter) Write(buffer *audio.IntBuffer) error {
	clipGuard(buffer, wr.maxSampleValue)
	if wr.format.BitDepth == 8 {
		shiftOffsetBinary(buffer.Data, wavUnsignedOffset)
	}
	return wr.encoder.Write(buffer)
}

func shiftOffsetBinary(data []int, offset int) {
	for i := range data {
		data[i] += offset
	}
}
