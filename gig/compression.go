package gig

import (
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/cwbudde/samplelib/pcm"
	"github.com/sirupsen/logrus"
)

// compression modes 0-1 are 16-bit, 2-5 are 24-bit
var (
	bytesPerFrame      = [6]int{4096, 2052, 768, 524, 396, 268}
	bytesPerFrameNoHdr = [6]int{4096, 2048, 768, 512, 384, 256}
	headerSize         = [6]int{0, 4, 0, 12, 12, 12}
	bitsPerSample      = [6]int{16, 8, 24, 16, 12, 8}
)

// frames per frame table entry
const tableFrames = 2048

// scanCompressed walks the frame headers of a compressed data chunk,
// recording frame offsets and the total sample count.
func (s *Sample) scanCompressed() error {
	s.totalFrames = 0
	s.frameTable = s.frameTable[:0]

	if s.BitDepth == 24 {
		s.samplesPerFrame = 256
	} else {
		s.samplesPerFrame = 2048
	}

	// one extra byte per channel for the mode flag
	s.worstCaseFrameSize = s.samplesPerFrame*s.frameSize + s.Channels

	c := s.data
	c.SetPos(0, chunk.Start)

	for i := 0; ; i++ {
		// 24-bit samples only keep every 8th frame offset
		if s.BitDepth != 24 || i&7 == 0 {
			s.frameTable = append(s.frameTable, c.Pos())
		}

		modeL, err := c.Uint8()
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}

		modeR := uint8(0)

		if s.Channels == 2 {
			if modeR, err = c.Uint8(); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
		}

		if modeL > 5 || modeR > 5 {
			return fmt.Errorf("%w: frame %d modes %d/%d", errCompressionMode, i, modeL, modeR)
		}

		size := int64(bytesPerFrame[modeL])
		hdr := int64(headerSize[modeL])
		bits := int64(bitsPerSample[modeL])

		if s.Channels == 2 {
			size += int64(bytesPerFrame[modeR])
			hdr += int64(headerSize[modeR])
			bits += int64(bitsPerSample[modeR])
		}

		if c.Remaining() <= size {
			s.samplesInLastFrame = int(((c.Remaining() - hdr) << 3) / bits)
			if s.samplesInLastFrame < 0 {
				s.samplesInLastFrame = 0
			}

			s.totalFrames += int64(s.samplesInLastFrame)

			break
		}

		s.totalFrames += int64(s.samplesPerFrame)
		c.SetPos(size, chunk.Current)
	}

	c.SetPos(0, chunk.Start)

	if len(s.frameTable) == 0 {
		return errBadFrameTable
	}

	return nil
}

// GuessSize estimates the compressed byte size of frames sample points:
// 16-bit assumes one byte per sample plus headers, 24-bit one and a half.
func (s *Sample) GuessSize(frames int) int {
	var size int
	if s.BitDepth == 24 {
		size = frames + frames>>1 + (frames>>8)*13
	} else {
		size = frames + (frames>>10)*5
	}

	if s.Channels == 2 {
		size <<= 1
	}

	return size + s.worstCaseFrameSize
}

// WorstCaseMaxSamples returns how many sample points are guaranteed to fit
// the decompression buffer.
func (s *Sample) WorstCaseMaxSamples(buf *pcm.Buffer) int {
	if s.worstCaseFrameSize == 0 {
		return 0
	}

	return int(float64(len(buf.Data)) / float64(s.worstCaseFrameSize) * float64(s.samplesPerFrame))
}

// CreateDecompressionBuffer returns a buffer large enough to read maxFrames
// sample points of any compressed sample in one call. A buffer must not be
// shared by concurrently streaming readers.
func CreateDecompressionBuffer(maxFrames int) *pcm.Buffer {
	// 256 samples plus 12 header bytes plus 2 mode bytes per frame
	const overhead = (256.0 + 12.0 + 2.0) / 256.0

	size := int(float64(maxFrames) * 3.0 * 2.0 * overhead)

	return &pcm.Buffer{Data: make([]byte, size), Size: size}
}

func get16(p []byte) int32 {
	return int32(int16(uint16(p[0]) | uint16(p[1])<<8))
}

func get24(p []byte) int32 {
	return int32(p[0]) | int32(p[1])<<8 | int32(int8(p[2]))<<16
}

func get12lo(p []byte) int32 {
	x := int32(p[0]) | int32(p[1]&0x0f)<<8
	if x&0x800 != 0 {
		x -= 0x1000
	}

	return x
}

func get12hi(p []byte) int32 {
	x := int32(p[1]>>4) | int32(p[2])<<4
	if x&0x800 != 0 {
		x -= 0x1000
	}

	return x
}

func store16(p []byte, v int32) {
	p[0] = byte(v)
	p[1] = byte(v >> 8)
}

func store24(p []byte, v int32) {
	p[0] = byte(v)
	p[1] = byte(v >> 8)
	p[2] = byte(v >> 16)
}

// decompress16 decodes one channel of a 16-bit frame. src points at the
// channel's first sample; samples are srcStep bytes apart in the source
// and dstStep bytes apart in dst.
func decompress16(mode int, params, src []byte, srcStep int, dst []byte, dstStep, skip, count int) {
	switch mode {
	case 0:
		si := skip * srcStep
		for di := 0; count > 0; count-- {
			copy(dst[di:di+2], src[si:si+2])
			di += dstStep
			si += srcStep
		}
	case 1:
		y := get16(params)
		dy := get16(params[2:])
		si := 0

		for ; skip > 0; skip-- {
			dy -= int32(int8(src[si]))
			y -= dy
			si += srcStep
		}

		for di := 0; count > 0; count-- {
			dy -= int32(int8(src[si]))
			y -= dy
			store16(dst[di:], y)
			di += dstStep
			si += srcStep
		}
	}
}

// decompress24 decodes one channel of a 24-bit frame into 3-byte samples
// dstStep bytes apart.
func decompress24(mode int, params, src []byte, dst []byte, dstStep, skip, count, truncatedBits int) {
	if mode == 2 {
		si := skip * 3
		for di := 0; count > 0; count-- {
			store24(dst[di:], get24(src[si:])<<truncatedBits)
			di += dstStep
			si += 3
		}

		return
	}

	y := get24(params)
	dy := y - get24(params[3:])
	ddy := get24(params[6:])
	dddy := get24(params[9:])
	di := 0

	step := func(x int32) {
		dddy -= x
		ddy -= dddy
		dy = -dy - ddy
		y += dy
	}

	put := func(x int32) {
		step(x)
		store24(dst[di:], y<<truncatedBits)
		di += dstStep
	}

	si := 0

	switch mode {
	case 3:
		for ; skip > 0; skip-- {
			step(get16(src[si:]))
			si += 2
		}

		for ; count > 0; count-- {
			put(get16(src[si:]))
			si += 2
		}
	case 4:
		for ; skip > 1; skip -= 2 {
			step(get12lo(src[si:]))
			step(get12hi(src[si:]))
			si += 3
		}

		if skip > 0 {
			step(get12lo(src[si:]))

			if count > 0 {
				put(get12hi(src[si:]))
				si += 3
				count--
			}
		}

		for ; count > 1; count -= 2 {
			put(get12lo(src[si:]))
			put(get12hi(src[si:]))
			si += 3
		}

		if count > 0 {
			put(get12lo(src[si:]))
		}
	case 5:
		for ; skip > 0; skip-- {
			step(int32(int8(src[si])))
			si++
		}

		for ; count > 0; count-- {
			put(int32(int8(src[si])))
			si++
		}
	}
}

// readCompressed decodes up to frames sample points from the current
// position into dst.
func (s *Sample) readCompressed(dst []byte, frames int, buf *pcm.Buffer) (int, error) {
	if s.pos >= s.totalFrames {
		return 0, nil
	}

	if buf == nil {
		buf = &s.decompression
	}

	if maxDst := len(dst) / s.frameSize; frames > maxDst {
		frames = maxDst
	}

	assumed := s.GuessSize(frames)

	if len(buf.Data) < assumed {
		switch {
		case buf == &s.decompression:
			buf.Data = make([]byte, assumed)
			buf.Size = assumed
		case len(buf.Data) < s.worstCaseFrameSize:
			return 0, fmt.Errorf("%w: %d bytes, one frame needs %d", errSmallBuffer, len(buf.Data), s.worstCaseFrameSize)
		default:
			logrus.Debugf("gig: decompression buffer too small for %d frames, reading fewer", frames)

			frames = s.WorstCaseMaxSamples(buf)
			assumed = s.GuessSize(frames)
		}
	}

	c := s.data
	remainingFrames := frames
	frameOffset := s.frameOffset
	s.frameOffset = 0
	dstOff := 0

	fill := func(n int) (int, error) {
		n = min(n, len(buf.Data), int(c.Remaining()))
		if n <= 0 {
			return 0, nil
		}

		got, err := c.Read(buf.Data, n, 1)
		if err != nil && !errors.Is(err, io.EOF) {
			return got, err
		}

		return got, nil
	}

	remaining, err := fill(assumed)
	if err != nil {
		return 0, err
	}

	src := buf.Data[:remaining]

	for remainingFrames > 0 && remaining > 0 {
		frameSamples := s.samplesPerFrame

		var frameBytes, rightOffset, nextOffset int

		modeL := int(src[0])
		modeR := 0

		if modeL > 5 {
			return 0, fmt.Errorf("%w: %d", errCompressionMode, modeL)
		}

		p := 1

		if s.Channels == 2 {
			if remaining < 2 {
				break
			}

			modeR = int(src[1])
			if modeR > 5 {
				return 0, fmt.Errorf("%w: %d", errCompressionMode, modeR)
			}

			p = 2
			frameBytes = bytesPerFrame[modeL] + bytesPerFrame[modeR] + 2
			rightOffset = bytesPerFrameNoHdr[modeL]
			nextOffset = rightOffset + bytesPerFrameNoHdr[modeR]

			if remaining < frameBytes {
				frameSamples = s.samplesInLastFrame
				if modeL == 4 && frameSamples&1 != 0 {
					rightOffset = ((frameSamples + 1) * bitsPerSample[modeL]) >> 3
				} else {
					rightOffset = (frameSamples * bitsPerSample[modeL]) >> 3
				}
			}
		} else {
			frameBytes = bytesPerFrame[modeL] + 1
			nextOffset = bytesPerFrameNoHdr[modeL]

			if remaining < frameBytes {
				frameSamples = s.samplesInLastFrame
			}
		}

		var copyCount, skipCount int

		if frameOffset+remainingFrames >= frameSamples {
			if frameOffset <= frameSamples {
				copyCount = frameSamples - frameOffset
				skipCount = frameOffset
			} else {
				copyCount = 0
				skipCount = frameSamples
			}
		} else {
			// the request ends inside this frame: rewind to its start
			// for the next call
			copyCount = remainingFrames
			skipCount = frameOffset
			c.SetPos(int64(remaining), chunk.Backward)
			s.frameOffset = frameOffset + copyCount
		}

		remainingFrames -= copyCount

		if remaining > frameBytes {
			remaining -= frameBytes
			if remainingFrames == 0 && frameOffset+copyCount == frameSamples {
				// whole frame consumed: next call starts at the next frame
				c.SetPos(int64(remaining), chunk.Backward)
			}
		} else {
			remaining = 0
		}

		frameOffset -= skipCount

		if copyCount == 0 {
			src = src[min(frameBytes, len(src)):]
		} else {
			paramL := src[p:]
			data := src[p:]

			if s.BitDepth == 24 {
				if modeL != 2 {
					data = data[12:]
				}

				if s.Channels == 2 {
					paramR := data
					if modeR != 2 {
						data = data[12:]
					}

					decompress24(modeL, paramL, data, dst[dstOff:], 6, skipCount, copyCount, s.TruncatedBits)
					decompress24(modeR, paramR, data[rightOffset:], dst[dstOff+3:], 6, skipCount, copyCount, s.TruncatedBits)
					dstOff += copyCount * 6
				} else {
					decompress24(modeL, paramL, data, dst[dstOff:], 3, skipCount, copyCount, s.TruncatedBits)
					dstOff += copyCount * 3
				}
			} else {
				if modeL != 0 {
					data = data[4:]
				}

				if s.Channels == 2 {
					paramR := data
					if modeR != 0 {
						data = data[4:]
					}

					srcStep := (2 - modeL) + (2 - modeR)
					decompress16(modeL, paramL, data, srcStep, dst[dstOff:], 4, skipCount, copyCount)
					decompress16(modeR, paramR, data[2-modeL:], srcStep, dst[dstOff+2:], 4, skipCount, copyCount)
					dstOff += copyCount * 4
				} else {
					decompress16(modeL, paramL, data, 2-modeL, dst[dstOff:], 2, skipCount, copyCount)
					dstOff += copyCount * 2
				}
			}

			if consumed := len(src) - len(data) + nextOffset; consumed < len(src) {
				src = src[consumed:]
			} else {
				src = nil
			}
		}

		// refill the local buffer when less than a worst case frame is left
		if remainingFrames > 0 && remaining < s.worstCaseFrameSize && c.Remaining() > 0 {
			c.SetPos(int64(remaining), chunk.Backward)

			remaining, err = fill(s.GuessSize(remainingFrames))
			if err != nil {
				return frames - remainingFrames, err
			}

			src = buf.Data[:remaining]
		}
	}

	read := frames - remainingFrames

	s.pos += int64(read)
	if s.pos > s.totalFrames {
		s.pos = s.totalFrames
	}

	return read, nil
}
