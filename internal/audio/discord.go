// /internal/audio/discord.go
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"
)

// StreamToDiscord reads PCM from stream, applies the volume (0-100),
// encodes 20ms opus frames and pushes them to the voice connection until
// the stream ends or stop closes. A clean end of stream returns nil.
func StreamToDiscord(stream io.ReadCloser, stop <-chan struct{}, volume func() int, vc *discordgo.VoiceConnection) error {
	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}

	defer stream.Close()

	vc.Speaking(true)
	defer vc.Speaking(false)

	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	for {
		select {
		case <-stop:
			return nil
		default:
			_, err := io.ReadFull(stream, pcmBuf)
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read error: %w", err)
			}

			vol := volume()
			for i := range intBuf {
				sample := int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
				intBuf[i] = scaleSample(sample, vol)
			}

			opus, err := encoder.Encode(intBuf, frameSize, len(pcmBuf))
			if err != nil {
				return fmt.Errorf("encode error: %w", err)
			}

			select {
			case <-stop:
				return nil
			case vc.OpusSend <- opus:
			}
		}
	}
}

// scaleSample applies a 0-100 volume with clipping. Values above 100 are
// passed through as amplification.
func scaleSample(sample int16, volume int) int16 {
	if volume == 100 {
		return sample
	}
	scaled := int32(sample) * int32(volume) / 100
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}
