package gig

import (
	"github.com/cwbudde/samplelib/chunk"
	"github.com/cwbudde/samplelib/pcm"
)

// PlaybackState is the streaming position of one voice. It is owned by the
// caller and updated by ReadAndLoop.
type PlaybackState struct {
	Position       int64
	Reverse        bool
	LoopCyclesLeft int
}

// NewPlaybackState returns the state of a voice starting at the beginning
// of s.
func NewPlaybackState(s *Sample) *PlaybackState {
	return &PlaybackState{LoopCyclesLeft: int(s.LoopPlayCount)}
}

// ReadAndLoop reads frames sample points for a voice, honoring the first
// loop of the dimension region. Forward loops jump back to the loop start,
// backward and bidirectional loops deliver reversed frames. When the sample
// has a loop play count the loop is left after that many cycles.
func (s *Sample) ReadAndLoop(dst []byte, frames int, state *PlaybackState, dr *DimensionRegion, decompBuf *pcm.Buffer) (int, error) {
	toRead := int64(frames)
	total := int64(0)
	fs := int64(s.frameSize)

	read := func(n int64) (int64, error) {
		got, err := s.Read(dst[total*fs:], int(n), decompBuf)
		return int64(got), err
	}

	s.SetPos(state.Position, chunk.Start)

	var (
		got int64
		err error
	)

	if dr != nil && len(dr.SampleLoops) > 0 && dr.SampleLoops[0].Length > 0 {
		loop := dr.SampleLoops[0]
		loopStart := int64(loop.Start)
		loopLen := int64(loop.Length)
		loopEnd := loopStart + loopLen
		counted := s.LoopPlayCount != 0

		if s.Pos() <= loopEnd {
			switch loop.Type {
			case LoopBidirectional:
				for {
					if counted && state.LoopCyclesLeft <= 0 {
						break
					}

					if !state.Reverse {
						for {
							toLoopEnd := loopEnd - s.Pos()

							if got, err = read(min(toRead, toLoopEnd)); err != nil {
								return int(total), err
							}

							toRead -= got
							total += got

							if got == toLoopEnd {
								state.Reverse = true
								break
							}

							if toRead == 0 || got == 0 {
								break
							}
						}
					} else {
						swapStart := total
						inLoop := min(toRead, s.Pos()-loopStart)
						reverseEnd := s.Pos() - inLoop

						s.SetPos(reverseEnd, chunk.Start)

						for {
							if got, err = read(inLoop); err != nil {
								return int(total), err
							}

							inLoop -= got
							toRead -= got
							total += got

							if inLoop == 0 || got == 0 {
								break
							}
						}

						// pretend the frames were read backwards
						s.SetPos(reverseEnd, chunk.Start)

						if reverseEnd == loopStart {
							if state.LoopCyclesLeft > 0 {
								state.LoopCyclesLeft--
							}

							state.Reverse = false
						}

						if total > swapStart {
							pcm.SwapFrames(dst[swapStart*fs:total*fs], s.frameSize)
						}
					}

					if toRead == 0 || got == 0 {
						break
					}
				}

			case LoopBackward:
				if !state.Reverse {
					for {
						toLoopEnd := loopEnd - s.Pos()

						if got, err = read(min(toRead, toLoopEnd)); err != nil {
							return int(total), err
						}

						toRead -= got
						total += got

						if got == toLoopEnd {
							state.Reverse = true
							break
						}

						if toRead == 0 || got == 0 {
							break
						}
					}
				}

				if toRead == 0 {
					break
				}

				swapStart := total
				loopOffset := s.Pos() - loopStart

				inLoop := toRead
				if counted {
					inLoop = min(toRead, int64(state.LoopCyclesLeft)*loopLen-loopOffset)
				}

				rem := (loopOffset - inLoop) % loopLen
				if rem < 0 {
					rem = -rem
				}

				reverseEnd := loopStart + rem

				s.SetPos(reverseEnd, chunk.Start)

				for inLoop > 0 {
					if counted && state.LoopCyclesLeft <= 0 {
						break
					}

					toLoopEnd := loopEnd - s.Pos()

					if got, err = read(min(inLoop, toLoopEnd)); err != nil {
						return int(total), err
					}

					inLoop -= got
					toRead -= got
					total += got

					if got == toLoopEnd {
						if state.LoopCyclesLeft > 0 {
							state.LoopCyclesLeft--
						}

						s.SetPos(loopStart, chunk.Start)
					}

					if got == 0 {
						break
					}
				}

				s.SetPos(reverseEnd, chunk.Start)
				pcm.SwapFrames(dst[swapStart*fs:total*fs], s.frameSize)

			default:
				for {
					if counted && state.LoopCyclesLeft <= 0 {
						break
					}

					toLoopEnd := loopEnd - s.Pos()

					if got, err = read(min(toRead, toLoopEnd)); err != nil {
						return int(total), err
					}

					toRead -= got
					total += got

					if got == toLoopEnd {
						if state.LoopCyclesLeft > 0 {
							state.LoopCyclesLeft--
						}

						s.SetPos(loopStart, chunk.Start)

						continue
					}

					if toRead == 0 || got == 0 {
						break
					}
				}
			}
		}
	}

	// read on without looping
	for toRead > 0 {
		if got, err = read(toRead); err != nil {
			return int(total), err
		}

		toRead -= got
		total += got

		if got == 0 {
			break
		}
	}

	state.Position = s.Pos()

	return int(total), nil
}
