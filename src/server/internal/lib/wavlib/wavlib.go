package wavlib

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/cockroachdb/errors"
)

// wavlib implements the two RIFF/WAV flavors the pipeline exchanges:
// 16-bit integer PCM for client-facing artifacts, and 32-bit IEEE float for
// the normalized waveform handed to the separation model. Normalized samples
// routinely exceed ±1.0, which integer PCM cannot carry.

const (
	formatPCM       uint16 = 1
	formatIEEEFloat uint16 = 3
)

type Waveform struct {
	SampleRate int
	// Channels holds one sample slice per channel, all of equal length.
	// PCM16 samples are scaled into [-1, 1).
	Channels [][]float64
}

func (w Waveform) NumChannels() int {
	return len(w.Channels)
}

func (w Waveform) NumFrames() int {
	if len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

// Downmix averages all channels into a single mono signal.
func (w Waveform) Downmix() []float64 {
	numChannels := w.NumChannels()
	if numChannels == 0 {
		return nil
	}

	mono := make([]float64, w.NumFrames())
	for _, channel := range w.Channels {
		for i, sample := range channel {
			mono[i] += sample
		}
	}

	for i := range mono {
		mono[i] /= float64(numChannels)
	}

	return mono
}

// MeanStd returns the mean and population standard deviation of samples.
func MeanStd(samples []float64) (float64, float64) {
	if len(samples) == 0 {
		return 0, 0
	}

	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	variance := 0.0
	for _, s := range samples {
		diff := s - mean
		variance += diff * diff
	}
	variance /= float64(len(samples))

	return mean, math.Sqrt(variance)
}

func ReadFile(path string) (Waveform, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Waveform{}, errors.Wrap(err, "Failed to read WAV file")
	}

	return Decode(contents)
}

func Decode(contents []byte) (Waveform, error) {
	if len(contents) < 12 ||
		string(contents[0:4]) != "RIFF" ||
		string(contents[8:12]) != "WAVE" {
		return Waveform{}, errors.New("Data is not in RIFF/WAVE format")
	}

	var (
		haveFormat    bool
		audioFormat   uint16
		numChannels   int
		sampleRate    int
		bitsPerSample int
		data          []byte
	)

	pos := 12
	for pos+8 <= len(contents) {
		chunkID := string(contents[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(contents[pos+4 : pos+8]))
		pos += 8

		if pos+chunkSize > len(contents) {
			// tolerate a data chunk whose declared size overruns the file
			chunkSize = len(contents) - pos
		}

		body := contents[pos : pos+chunkSize]

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Waveform{}, errors.New("WAV fmt chunk is truncated")
			}
			audioFormat = binary.LittleEndian.Uint16(body[0:2])
			numChannels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFormat = true

		case "data":
			data = body
		}

		// chunks are word aligned
		pos += chunkSize + chunkSize%2
	}

	if !haveFormat {
		return Waveform{}, errors.New("WAV file has no fmt chunk")
	}

	if data == nil {
		return Waveform{}, errors.New("WAV file has no data chunk")
	}

	if numChannels < 1 {
		return Waveform{}, errors.New("WAV file has no channels")
	}

	errctx := func() error {
		return errors.Newf("Unsupported WAV encoding: format %d, %d bits", audioFormat, bitsPerSample)
	}

	bytesPerSample := bitsPerSample / 8
	switch audioFormat {
	case formatPCM:
		if bitsPerSample != 16 {
			return Waveform{}, errctx()
		}
	case formatIEEEFloat:
		if bitsPerSample != 32 {
			return Waveform{}, errctx()
		}
	default:
		return Waveform{}, errctx()
	}

	frameSize := bytesPerSample * numChannels
	numFrames := len(data) / frameSize

	channels := make([][]float64, numChannels)
	for c := range channels {
		channels[c] = make([]float64, numFrames)
	}

	for frame := 0; frame < numFrames; frame++ {
		for c := 0; c < numChannels; c++ {
			offset := frame*frameSize + c*bytesPerSample

			switch audioFormat {
			case formatPCM:
				sample := int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
				channels[c][frame] = float64(sample) / 32768.0
			case formatIEEEFloat:
				bits := binary.LittleEndian.Uint32(data[offset : offset+4])
				channels[c][frame] = float64(math.Float32frombits(bits))
			}
		}
	}

	return Waveform{
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// WritePCM16File writes the waveform as 16-bit integer PCM, clamping samples
// to the representable range.
func WritePCM16File(path string, waveform Waveform) error {
	encodeFrame := func(buf []byte, offset int, sample float64) {
		scaled := math.Round(sample * 32767.0)
		clamped := math.Max(-32768, math.Min(32767, scaled))
		binary.LittleEndian.PutUint16(buf[offset:], uint16(int16(clamped)))
	}

	return writeFile(path, waveform, formatPCM, 2, encodeFrame)
}

// WriteFloat32File writes the waveform as 32-bit IEEE float samples, which
// preserves values outside [-1, 1].
func WriteFloat32File(path string, waveform Waveform) error {
	encodeFrame := func(buf []byte, offset int, sample float64) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(float32(sample)))
	}

	return writeFile(path, waveform, formatIEEEFloat, 4, encodeFrame)
}

func writeFile(path string, waveform Waveform, audioFormat uint16, bytesPerSample int, encodeFrame func([]byte, int, float64)) error {
	numChannels := waveform.NumChannels()
	if numChannels == 0 {
		return errors.New("Waveform has no channels")
	}

	numFrames := waveform.NumFrames()
	for _, channel := range waveform.Channels {
		if len(channel) != numFrames {
			return errors.New("Waveform channels have mismatched lengths")
		}
	}

	frameSize := bytesPerSample * numChannels
	dataSize := numFrames * frameSize

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], audioFormat)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(waveform.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(waveform.SampleRate*frameSize))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(frameSize))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bytesPerSample*8))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for frame := 0; frame < numFrames; frame++ {
		for c := 0; c < numChannels; c++ {
			offset := 44 + frame*frameSize + c*bytesPerSample
			encodeFrame(buf, offset, waveform.Channels[c][frame])
		}
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return errors.Wrap(err, "Failed to write WAV file")
	}

	return nil
}
