package samples

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/samplelib"
	"github.com/cwbudde/samplelib/gig"
	"github.com/cwbudde/samplelib/korg"
	"github.com/cwbudde/samplelib/pcm"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

var (
	errNotWAV       = errors.New("not a WAV file")
	errNotAIFF      = errors.New("not an AIFF file")
	errNoFrames     = errors.New("no audio frames")
	errUnsupported  = errors.New("unsupported source type")
	errSF2Range     = errors.New("sample range outside the wave data")
	errNoSoundFont  = errors.New("no soundfont")
	errNoGIG        = errors.New("no gig file")
	errNotMonolith  = errors.New("not a monolith")
	errMonolithSize = errors.New("monolith wave data does not match its format")
)

func formatError(format, path, reason string, err error) error {
	fe := samplelib.NewFormatError(format, reason, err)
	fe.Path = path

	return fe
}

// decodeFile decodes a single sample file of type t.
func decodeFile(t SourceType, path string) (*Sample, error) {
	addr := FileAddress(t, path)

	switch t {
	case SourceWAV:
		return decodeWAV(addr)
	case SourceAIFF:
		return decodeAIFF(addr)
	case SourceMP3:
		return decodeMP3(addr)
	case SourceOGG:
		return decodeOGG(addr)
	case SourceFLAC:
		return decodeFLAC(addr)
	case SourceKSF:
		return decodeKSF(addr)
	}

	return nil, fmt.Errorf("%s: %w", t, errUnsupported)
}

// normalize converts go-audio integer PCM to floats. 8-bit WAV and AIFF
// decoders hand out offset binary.
func normalize(ib *audio.IntBuffer, bitDepth int, unsigned8 bool) *audio.Float32Buffer {
	out := make([]float32, len(ib.Data))

	for i, v := range ib.Data {
		if bitDepth == 8 && unsigned8 {
			v -= 128
		}

		out[i] = pcm.NormalizeInt(v, bitDepth)
	}

	return &audio.Float32Buffer{Format: ib.Format, Data: out, SourceBitDepth: bitDepth}
}

func decodeWAV(addr Address) (*Sample, error) {
	f, err := os.Open(addr.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, formatError("wav", addr.Path, "header", errNotWAV)
	}

	dec.ReadMetadata()

	if err := dec.Rewind(); err != nil {
		return nil, fmt.Errorf("failed to rewind %s: %w", addr.Path, err)
	}

	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, formatError("wav", addr.Path, "pcm data", err)
	}

	if len(ib.Data) == 0 {
		return nil, formatError("wav", addr.Path, "pcm data", errNoFrames)
	}

	bits := int(dec.BitDepth)
	s := newSample(addr, normalize(ib, bits, true), bits)

	if md := dec.Metadata; md != nil && md.SamplerInfo != nil {
		si := md.SamplerInfo
		s.RootKey = int(si.MIDIUnityNote)

		if len(si.Loops) > 0 {
			l := si.Loops[0]
			s.LoopMode = smplLoopMode(l.Type)
			s.LoopStart = int(l.Start)
			s.LoopEnd = int(l.End)
			s.LoopFraction = l.Fraction
			s.LoopPlayCount = int(l.PlayCount)
		}
	}

	return s, nil
}

func smplLoopMode(t uint32) LoopMode {
	switch t {
	case 1:
		return LoopBidirectional
	case 2:
		return LoopBackward
	}

	return LoopForward
}

func decodeAIFF(addr Address) (*Sample, error) {
	f, err := os.Open(addr.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := aiff.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, formatError("aiff", addr.Path, "header", errNotAIFF)
	}

	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, formatError("aiff", addr.Path, "sound data", err)
	}

	if len(ib.Data) == 0 {
		return nil, formatError("aiff", addr.Path, "sound data", errNoFrames)
	}

	bits := int(dec.BitDepth)

	return newSample(addr, normalize(ib, bits, false), bits), nil
}

func decodeMP3(addr Address) (*Sample, error) {
	f, err := os.Open(addr.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, formatError("mp3", addr.Path, "stream", err)
	}

	// go-mp3 always produces 16-bit stereo
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, formatError("mp3", addr.Path, "frames", err)
	}

	buf, err := pcm.ToFloat32Buffer(data, pcm.Format{Channels: 2, BitDepth: 16, SampleRate: dec.SampleRate()})
	if err != nil {
		return nil, err
	}

	return newSample(addr, buf, 16), nil
}

func decodeOGG(addr Address) (*Sample, error) {
	f, err := os.Open(addr.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, format, err := oggvorbis.ReadAll(f)
	if err != nil {
		return nil, formatError("ogg", addr.Path, "vorbis stream", err)
	}

	buf := &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           data,
		SourceBitDepth: 32,
	}

	return newSample(addr, buf, 32), nil
}

func decodeFLAC(addr Address) (*Sample, error) {
	stream, err := flac.Open(addr.Path)
	if err != nil {
		return nil, formatError("flac", addr.Path, "stream", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bits := int(stream.Info.BitsPerSample)

	var data []float32

	for {
		fr, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, formatError("flac", addr.Path, "frame", err)
		}

		n := len(fr.Subframes[0].Samples)
		for i := range n {
			for ch := range channels {
				data = append(data, pcm.NormalizeInt(int(fr.Subframes[ch].Samples[i]), bits))
			}
		}
	}

	buf := &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: int(stream.Info.SampleRate)},
		Data:           data,
		SourceBitDepth: bits,
	}

	return newSample(addr, buf, bits), nil
}

func decodeKSF(addr Address) (*Sample, error) {
	ksf, err := korg.OpenKSF(addr.Path)
	if err != nil {
		return nil, err
	}
	defer ksf.Close()

	cache, err := ksf.LoadSampleData()
	if err != nil {
		return nil, err
	}

	buf, err := pcm.ToFloat32Buffer(cache.Data[:cache.Size], ksf.Format())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", addr.Path, err)
	}

	s := newSample(addr, buf, int(ksf.BitDepth))

	if ksf.LoopEnd > ksf.LoopStart {
		s.LoopMode = LoopForward
		s.LoopStart = int(ksf.LoopStart)
		s.LoopEnd = int(ksf.LoopEnd)
	}

	return s, nil
}

// decodeGIGSample decodes wave pool entry index of f.
func decodeGIGSample(addr Address, f *gig.File) (*Sample, error) {
	if f == nil {
		return nil, errNoGIG
	}

	gs, err := f.Sample(addr.Region)
	if err != nil {
		return nil, err
	}

	cache, err := gs.LoadSampleData()
	if err != nil {
		return nil, err
	}
	defer gs.ReleaseSampleData()

	buf, err := pcm.ToFloat32Buffer(cache.Data[:cache.Size], gs.Format())
	if err != nil {
		return nil, fmt.Errorf("gig sample %q: %w", gs.Name, err)
	}

	s := newSample(addr, buf, gs.BitDepth)
	s.RootKey = int(gs.UnityNote)

	if gs.Loops > 0 {
		switch gs.LoopType {
		case gig.LoopBidirectional:
			s.LoopMode = LoopBidirectional
		case gig.LoopBackward:
			s.LoopMode = LoopBackward
		default:
			s.LoopMode = LoopForward
		}

		s.LoopStart = int(gs.LoopStart)
		s.LoopEnd = int(gs.LoopEnd)
		s.LoopFraction = gs.LoopFraction
		s.LoopPlayCount = int(gs.LoopPlayCount)
	}

	return s, nil
}

// sf2Region returns the instrument region at preset/instrument/region,
// where instrument indexes the preset's regions.
func sf2Region(sf *meltysynth.SoundFont, addr Address) (*meltysynth.InstrumentRegion, error) {
	if sf == nil {
		return nil, errNoSoundFont
	}

	if addr.Preset < 0 || addr.Preset >= len(sf.Presets) {
		return nil, &samplelib.IndexError{Record: addr.Path, Field: "preset", Index: addr.Preset, Limit: len(sf.Presets)}
	}

	p := sf.Presets[addr.Preset]
	if addr.Instrument < 0 || addr.Instrument >= len(p.Regions) {
		return nil, &samplelib.IndexError{Record: "preset " + p.Name, Field: "preset region", Index: addr.Instrument, Limit: len(p.Regions)}
	}

	ins := p.Regions[addr.Instrument].Instrument
	if addr.Region < 0 || addr.Region >= len(ins.Regions) {
		return nil, &samplelib.IndexError{Record: "instrument " + ins.Name, Field: "region", Index: addr.Region, Limit: len(ins.Regions)}
	}

	return ins.Regions[addr.Region], nil
}

func decodeSF2Sample(addr Address, sf *meltysynth.SoundFont) (*Sample, error) {
	r, err := sf2Region(sf, addr)
	if err != nil {
		return nil, err
	}

	start, end := int(r.GetSampleStart()), int(r.GetSampleEnd())
	if start < 0 || end > len(sf.WaveData) || end <= start {
		return nil, fmt.Errorf("%s: samples [%d,%d) of %d: %w", addr.Path, start, end, len(sf.WaveData), errSF2Range)
	}

	data := make([]float32, end-start)
	for i, v := range sf.WaveData[start:end] {
		data[i] = pcm.NormalizeInt(int(v), 16)
	}

	buf := &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(r.Sample.SampleRate)},
		Data:           data,
		SourceBitDepth: 16,
	}

	s := newSample(addr, buf, 16)
	s.RootKey = int(r.GetRootKey())

	if r.GetSampleModes() != meltysynth.NoLoop {
		s.LoopMode = LoopForward
		s.LoopStart = int(r.GetSampleStartLoop()) - start
		s.LoopEnd = int(r.GetSampleEndLoop()) - start
	}

	return s, nil
}
