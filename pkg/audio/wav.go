package audio

import (
	"encoding/binary"
	"fmt"
)

// WAV format codes from the RIFF spec.
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// wavHeaderSize is the byte length of the canonical 44-byte header written by
// EncodeWAV (RIFF descriptor + fmt chunk + data chunk header).
const wavHeaderSize = 44

// EncodeWAV serializes a clip as a 16-bit PCM mono RIFF/WAVE file at the
// clip's sample rate. Samples outside [-1, 1] are clamped before
// quantization.
func EncodeWAV(c Clip) []byte {
	dataSize := len(c.Samples) * 2
	out := make([]byte, wavHeaderSize+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(out[22:24], 1) // mono
	binary.LittleEndian.PutUint32(out[24:28], uint32(c.Rate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(c.Rate*2)) // byte rate
	binary.LittleEndian.PutUint16(out[32:34], 2)                // block align
	binary.LittleEndian.PutUint16(out[34:36], 16)               // bits per sample

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	for i, s := range c.Samples {
		v := int16(s * 32767.0)
		if s > 1.0 {
			v = 32767
		} else if s < -1.0 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[wavHeaderSize+i*2:], uint16(v))
	}
	return out
}

// DecodeWAV parses a RIFF/WAVE file and returns its audio as a canonical mono
// clip. 16-bit and 32-bit integer PCM and 32-bit IEEE float samples are
// supported; multi-channel audio is downmixed by per-sample averaging. The
// chunk walk tolerates extra chunks (LIST, fact, ...) before or after the
// data chunk.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) < 12 {
		return Clip{}, fmt.Errorf("audio: wav data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, fmt.Errorf("audio: not a RIFF/WAVE file")
	}

	var (
		format     Format
		formatCode uint16
		bits       uint16
		haveFmt    bool
		dataOffset int
		dataSize   int
		haveData   bool
	)

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			return Clip{}, fmt.Errorf("audio: wav chunk %q overruns file", chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Clip{}, fmt.Errorf("audio: wav fmt chunk too short: %d bytes", chunkSize)
			}
			formatCode = binary.LittleEndian.Uint16(data[body : body+2])
			format.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			format.Rate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			dataOffset = body
			dataSize = chunkSize
			haveData = true
		}

		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !haveFmt {
		return Clip{}, fmt.Errorf("audio: wav fmt chunk not found")
	}
	if !haveData {
		return Clip{}, fmt.Errorf("audio: wav data chunk not found")
	}

	switch {
	case formatCode == wavFormatPCM && bits == 16:
		format.Encoding = PCM16
	case formatCode == wavFormatPCM && bits == 32:
		format.Encoding = PCM32
	case formatCode == wavFormatFloat && bits == 32:
		format.Encoding = Float32
	default:
		return Clip{}, fmt.Errorf("audio: unsupported wav format: code %d, %d bits", formatCode, bits)
	}

	return Normalize(data[dataOffset:dataOffset+dataSize], format), nil
}
