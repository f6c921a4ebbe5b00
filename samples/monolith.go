package samples

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/go-audio/audio"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	formMonolith = chunk.MakeID("SCXM")
	ckMonoHeader = chunk.MakeID("mhdr")
	listWave     = chunk.MakeID("wave")
)

const (
	waveFormatFloat = 3
	fmtChunkSize    = 16
	floatBytes      = 4
)

// MonolithRecord is the index entry of one packed sample.
type MonolithRecord struct {
	ID            SampleID `msgpack:"id"`
	Address       Address  `msgpack:"address"`
	Frames        int      `msgpack:"frames"`
	Channels      int      `msgpack:"channels"`
	SampleRate    int      `msgpack:"rate"`
	BitDepth      int      `msgpack:"bits"`
	LoopMode      LoopMode `msgpack:"loop_mode"`
	LoopStart     int      `msgpack:"loop_start"`
	LoopEnd       int      `msgpack:"loop_end"`
	LoopFraction  uint32   `msgpack:"loop_fraction"`
	LoopPlayCount int      `msgpack:"loop_play_count"`
	RootKey       int      `msgpack:"root_key"`
}

func recordOf(s *Sample) MonolithRecord {
	return MonolithRecord{
		ID:            s.ID,
		Address:       s.Address,
		Frames:        s.Frames,
		Channels:      s.Channels,
		SampleRate:    s.SampleRate,
		BitDepth:      s.BitDepth,
		LoopMode:      s.LoopMode,
		LoopStart:     s.LoopStart,
		LoopEnd:       s.LoopEnd,
		LoopFraction:  s.LoopFraction,
		LoopPlayCount: s.LoopPlayCount,
		RootKey:       s.RootKey,
	}
}

// WriteMonolith packs samples into one RIFF SCXM file: an mhdr index with
// the original addresses followed by one LIST wave of 32-bit float PCM
// per sample. Missing samples cannot be packed.
func WriteMonolith(w io.WriteSeeker, samples []*Sample) error {
	records := make([]MonolithRecord, 0, len(samples))

	for _, s := range samples {
		if s.Missing() || s.Data == nil {
			return fmt.Errorf("sample %s has no data to pack", s.ID)
		}

		records = append(records, recordOf(s))
	}

	hdr, err := msgpack.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode monolith index: %w", err)
	}

	cw := chunk.NewWriter(w, binary.LittleEndian)

	if err := cw.BeginRIFF(formMonolith); err != nil {
		return err
	}

	if err := cw.WriteChunk(ckMonoHeader, hdr); err != nil {
		return err
	}

	for _, s := range samples {
		if err := writeWave(cw, s); err != nil {
			return fmt.Errorf("sample %s: %w", s.ID, err)
		}
	}

	return cw.Close()
}

func writeWave(cw *chunk.Writer, s *Sample) error {
	var fmtData [fmtChunkSize]byte

	blockAlign := s.Channels * floatBytes
	binary.LittleEndian.PutUint16(fmtData[0:], waveFormatFloat)
	binary.LittleEndian.PutUint16(fmtData[2:], uint16(s.Channels))
	binary.LittleEndian.PutUint32(fmtData[4:], uint32(s.SampleRate))
	binary.LittleEndian.PutUint32(fmtData[8:], uint32(s.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(fmtData[12:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(fmtData[14:], 32)

	data := make([]byte, len(s.Data.Data)*floatBytes)
	for i, v := range s.Data.Data {
		binary.LittleEndian.PutUint32(data[i*floatBytes:], math.Float32bits(v))
	}

	if err := cw.BeginList(listWave); err != nil {
		return err
	}

	if err := cw.WriteChunk(chunk.IDFmt, fmtData[:]); err != nil {
		return err
	}

	if err := cw.WriteChunk(chunk.IDData, data); err != nil {
		return err
	}

	return cw.EndList()
}

// Monolith is an open SCXM file.
type Monolith struct {
	cf      *chunk.File
	waves   []*chunk.List
	Records []MonolithRecord
}

// OpenMonolith opens the monolith at path and reads its index.
func OpenMonolith(path string) (*Monolith, error) {
	cf, err := chunk.Open(path, chunk.Options{FormType: formMonolith})
	if err != nil {
		return nil, err
	}

	m, err := readMonolith(cf)
	if err != nil {
		cf.Close()
		return nil, err
	}

	return m, nil
}

func readMonolith(cf *chunk.File) (*Monolith, error) {
	root := cf.Root()

	ck := root.Subchunk(ckMonoHeader)
	if ck == nil {
		return nil, formatError("scxm", cf.Path(), "mhdr", chunk.ErrChunkNotFound)
	}

	data, err := ck.LoadData()
	if err != nil {
		return nil, formatError("scxm", cf.Path(), "mhdr", err)
	}

	m := &Monolith{cf: cf, waves: root.ListsOfType(listWave)}
	if err := msgpack.Unmarshal(data, &m.Records); err != nil {
		return nil, formatError("scxm", cf.Path(), "mhdr index", err)
	}

	if len(m.Records) != len(m.waves) {
		return nil, formatError("scxm", cf.Path(),
			fmt.Sprintf("%d index records for %d waves", len(m.Records), len(m.waves)), errNotMonolith)
	}

	return m, nil
}

// Len returns the number of packed samples.
func (m *Monolith) Len() int {
	return len(m.Records)
}

// Find returns the index of the record whose original address has key.
func (m *Monolith) Find(key string) (int, bool) {
	for i, r := range m.Records {
		if r.Address.Key() == key {
			return i, true
		}
	}

	return -1, false
}

// Sample decodes entry i, readChunk frames per read. The returned sample
// carries the packed record's metadata; identity is left to the caller.
func (m *Monolith) Sample(i, readChunk int) (*Sample, error) {
	if i < 0 || i >= len(m.Records) {
		return nil, fmt.Errorf("monolith %s: entry %d of %d: %w", m.cf.Path(), i, len(m.Records), errNotMonolith)
	}

	rec := m.Records[i]
	wave := m.waves[i]

	fmtCk, dataCk := wave.Subchunk(chunk.IDFmt), wave.Subchunk(chunk.IDData)
	if fmtCk == nil || dataCk == nil {
		return nil, formatError("scxm", m.cf.Path(), fmt.Sprintf("wave %d", i), chunk.ErrChunkNotFound)
	}

	r := fmtCk.Fields()
	tag := r.Uint16()
	channels := int(r.Uint16())
	rate := int(r.Uint32())

	if r.Err() != nil || tag != waveFormatFloat || channels <= 0 {
		return nil, formatError("scxm", m.cf.Path(), fmt.Sprintf("wave %d format", i), errMonolithSize)
	}

	total := int(dataCk.Size) / floatBytes
	if total%channels != 0 {
		return nil, formatError("scxm", m.cf.Path(), fmt.Sprintf("wave %d data", i), errMonolithSize)
	}

	readChunk = max(readChunk, 1) * channels
	raw := make([]byte, readChunk*floatBytes)
	data := make([]float32, 0, total)

	dataCk.SetPos(0, chunk.Start)

	for len(data) < total {
		n, err := dataCk.Read(raw, min(readChunk, total-len(data)), floatBytes)
		for j := range n {
			data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(raw[j*floatBytes:])))
		}

		if n == 0 || err != nil {
			break
		}
	}

	if len(data) != total {
		return nil, formatError("scxm", m.cf.Path(), fmt.Sprintf("wave %d data", i), io.ErrUnexpectedEOF)
	}

	s := newSample(rec.Address, &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 32,
	}, rec.BitDepth)
	s.LoopMode = rec.LoopMode
	s.LoopStart = rec.LoopStart
	s.LoopEnd = rec.LoopEnd
	s.LoopFraction = rec.LoopFraction
	s.LoopPlayCount = rec.LoopPlayCount
	s.RootKey = rec.RootKey

	return s, nil
}

// Path returns the monolith file.
func (m *Monolith) Path() string {
	return m.cf.Path()
}

func (m *Monolith) Close() error {
	if m == nil {
		return nil
	}

	return m.cf.Close()
}

// ExportMonolith packs every loaded, non-missing sample into w and returns
// the table BindMonolith expects.
func (m *Manager) ExportMonolith(w io.WriteSeeker) (map[string]int, error) {
	var packed []*Sample

	for _, s := range m.Samples() {
		if !s.Missing() {
			packed = append(packed, s)
		}
	}

	if err := WriteMonolith(w, packed); err != nil {
		return nil, err
	}

	table := make(map[string]int, len(packed))
	for i, s := range packed {
		table[s.Address.Key()] = i
	}

	m.log.WithField("samples", len(packed)).Info("monolith written")

	return table, nil
}
