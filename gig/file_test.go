package gig

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"testing"

	"github.com/cwbudde/samplelib"
	"github.com/cwbudde/samplelib/chunk"
	"github.com/cwbudde/samplelib/internal/chunktest"
)

type libraryFixture struct {
	data     []byte
	waveData [][]byte
}

// buildLibrary returns a version 3 file with two samples, one instrument
// with a velocity split region, two groups, one script and a checksum table
// whose second entry is wrong.
func buildLibrary(t *testing.T) libraryFixture {
	t.Helper()

	waveData := [][]byte{pcm16(ramp(64)), pcm16(sine16(32, 1))}
	waves := []chunk.Node{
		waveNode(testWave{name: "soft", channels: 1, bits: 16, data: waveData[0], group: 0}),
		waveNode(testWave{name: "hard", channels: 1, bits: 16, data: waveData[1], group: 1}),
	}

	region := regionNode(testRegion{
		keyLow:  36,
		keyHigh: 72,
		dims:    []DimensionDef{{Type: DimensionVelocity, Bits: 1, Zones: 2}},
		pool:    []uint32{0, 1},
		dimRegions: []testDimRegion{
			{upper: [8]uint8{80}, loopType: LoopNormal, loopStart: 8, loopLength: 16},
			{upper: [8]uint8{127}, velCurve: 7, velScaling: 40},
		},
	}, true)

	scsl := chunktest.LE().U32(12).U32(1).U32(8).U32(0).U32(1)
	ins := instrumentNode("Piano", 0x80000102, 5, []chunk.Node{region},
		chunktest.List("3LS ", chunktest.Chunk("SCSL", scsl.Bytes())))

	groups := chunktest.List("3gri", chunktest.List("3gnl",
		chunktest.Chunk("3gnm", chunktest.LE().Str("Soft", 64).Bytes()),
		chunktest.Chunk("3gnm", chunktest.LE().Str("Hard", 64).Bytes()),
		chunktest.Chunk("3gnm", chunktest.LE().Str("", 64).Bytes()),
	))

	name := "legato"
	scri := chunktest.LE().
		U32(uint32(6*4 + len(name) + 16)).
		U32(0).U32(0).U32(0).U32(1).U32(0).
		U32(uint32(len(name))).
		Raw([]byte(name)...).
		Raw(bytes.Repeat([]byte{0xab}, 16)...).
		Raw([]byte("on note\nend on\n")...)
	scripts := chunktest.List("3LS ", chunktest.List("RTIS",
		chunktest.Chunk("LSNM", []byte("Performance")),
		chunktest.Chunk("Scri", scri.Bytes()),
	))

	crc := chunktest.LE().
		U32(1).U32(crc32.ChecksumIEEE(waveData[0])).
		U32(1).U32(0xdeadbeef)

	data := testFile{
		v3:          true,
		waves:       waves,
		usePtbl:     true,
		instruments: []chunk.Node{ins},
		extra:       []chunk.Node{groups, scripts, chunktest.Chunk("3crc", crc.Bytes())},
	}.bytes()

	// point the script slot at the Scri payload
	scriAt := bytes.Index(data, []byte("Scri"))
	slotAt := bytes.Index(data, []byte("SCSL"))
	binary.LittleEndian.PutUint32(data[slotAt+8+12:], uint32(scriAt+8))

	return libraryFixture{data: data, waveData: waveData}
}

func TestOpenLibrary(t *testing.T) {
	fx := buildLibrary(t)
	path := chunktest.WriteFile(t, t.TempDir(), "piano.gig", fx.data)

	tables := NewTables()

	f, err := Open(path, Options{Tables: tables})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if len(f.Skipped) != 0 {
		t.Fatalf("unexpected skipped records: %v", f.Skipped)
	}

	if f.Version.Major != 3 || f.DeclaredInstruments != 1 {
		t.Fatalf("version %s, %d instruments", f.Version, f.DeclaredInstruments)
	}

	if len(f.Samples) != 2 || f.Samples[0].Name != "soft" || f.Samples[1].Name != "hard" {
		t.Fatalf("samples %+v", f.Samples)
	}

	if f.Samples[1].PoolOffset == 0 || f.Samples[1].TotalFrames() != 32 {
		t.Fatalf("second sample pool offset %d, %d frames", f.Samples[1].PoolOffset, f.Samples[1].TotalFrames())
	}

	if len(f.Groups) != 2 || f.Groups[1].Name != "Hard" {
		t.Fatalf("groups %+v", f.Groups)
	}

	if got := f.GroupSamples(1); len(got) != 1 || got[0].Name != "hard" {
		t.Fatalf("GroupSamples(1) = %v", got)
	}

	ins := f.Instrument(0)
	if ins == nil || ins.Name != "Piano" {
		t.Fatalf("instrument %+v", ins)
	}

	if !ins.IsDrum || ins.MIDIBank != 1<<7|2 || ins.MIDIProgram != 5 {
		t.Fatalf("bank %d program %d drum %v", ins.MIDIBank, ins.MIDIProgram, ins.IsDrum)
	}

	if ins.Attenuation != -10 || ins.FineTune != 5 || ins.PitchbendRange != 12 ||
		!ins.PianoReleaseMode || ins.DimensionKeyLow != 36 || ins.DimensionKeyHigh != 96 {
		t.Fatalf("3ewg fields %+v", ins)
	}

	if len(ins.Regions) != 1 {
		t.Fatalf("%d regions", len(ins.Regions))
	}

	r := ins.Regions[0]
	if r.KeyLow != 36 || r.KeyHigh != 72 || ins.RegionForKey(60) != r || ins.RegionForKey(20) != nil {
		t.Fatalf("region key range %d-%d", r.KeyLow, r.KeyHigh)
	}

	if len(r.DimensionRegions) != 2 || r.SampleIndex != 0 {
		t.Fatalf("%d dimension regions, sample %d", len(r.DimensionRegions), r.SampleIndex)
	}

	soft := r.GetDimensionRegionByValue([8]uint8{80})
	hard := r.GetDimensionRegionByValue([8]uint8{81})

	if soft != r.DimensionRegions[0] || hard != r.DimensionRegions[1] {
		t.Fatal("velocity split at 80 not honored")
	}

	if s, err := f.SampleOf(hard); err != nil || s.Name != "hard" {
		t.Fatalf("SampleOf(hard) = %v, %v", s, err)
	}

	if len(soft.SampleLoops) != 1 || soft.SampleLoops[0].Start != 8 || soft.SampleLoops[0].Length != 16 {
		t.Fatalf("loops %+v", soft.SampleLoops)
	}

	if hard.VelocityResponseCurve != CurveLinear || hard.VelocityResponseDepth != 2 || hard.VelocityResponseCurveScaling != 40 {
		t.Fatalf("velocity response %v/%d/%d", hard.VelocityResponseCurve, hard.VelocityResponseDepth, hard.VelocityResponseCurveScaling)
	}

	if soft.VelocityTable() == hard.VelocityTable() {
		t.Fatal("different curves must not share a table")
	}

	if soft.CutoffVelocityTable() != hard.CutoffVelocityTable() {
		t.Fatal("identical cutoff parameters must share a table")
	}

	if len(f.Scripts) != 1 || len(f.ScriptGroups) != 1 {
		t.Fatalf("%d scripts in %d groups", len(f.Scripts), len(f.ScriptGroups))
	}

	sc := f.Scripts[0]
	if sc.Name != "legato" || !sc.Bypass || sc.Text != "on note\nend on\n" || sc.UUID[0] != 0xab {
		t.Fatalf("script %+v", sc)
	}

	if f.ScriptGroups[0].Name != "Performance" {
		t.Fatalf("script group %q", f.ScriptGroups[0].Name)
	}

	if len(ins.ScriptSlots) != 1 || ins.ScriptSlots[0].Script != 0 || !ins.ScriptSlots[0].Bypass {
		t.Fatalf("script slots %+v", ins.ScriptSlots)
	}
}

func TestSampleChecksums(t *testing.T) {
	fx := buildLibrary(t)
	path := chunktest.WriteFile(t, t.TempDir(), "piano.gig", fx.data)

	f, err := Open(path, Options{Writable: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !f.VerifySampleChecksumTable() {
		t.Fatal("checksum table should be structurally valid")
	}

	if err := f.VerifySampleChecksum(0); err != nil {
		t.Fatalf("sample 0: %v", err)
	}

	err = f.VerifySampleChecksum(1)

	var ie *samplelib.IntegrityError
	if !errors.As(err, &ie) || !errors.Is(err, samplelib.ErrIntegrity) {
		t.Fatalf("expected an integrity error, got %v", err)
	}

	if ie.Expected != 0xdeadbeef || ie.Actual != crc32.ChecksumIEEE(fx.waveData[1]) {
		t.Fatalf("integrity error %+v", ie)
	}

	rewrite, err := f.RebuildSampleChecksumTable()
	if err != nil || rewrite {
		t.Fatalf("RebuildSampleChecksumTable = %v, %v", rewrite, err)
	}

	f.Close()

	f, err = Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	for i := range f.Samples {
		if err := f.VerifySampleChecksum(i); err != nil {
			t.Fatalf("after rebuild, sample %d: %v", i, err)
		}
	}
}

func TestChecksumTableMissing(t *testing.T) {
	f := testFile{waves: []chunk.Node{
		waveNode(testWave{channels: 1, bits: 16, data: pcm16(ramp(10))}),
	}}.open(t)

	if f.VerifySampleChecksumTable() {
		t.Fatal("missing table reported valid")
	}

	if err := f.VerifySampleChecksum(0); !errors.Is(err, errChecksumTable) {
		t.Fatalf("expected errChecksumTable, got %v", err)
	}

	rewrite, err := f.RebuildSampleChecksumTable()
	if err != nil || !rewrite {
		t.Fatalf("RebuildSampleChecksumTable = %v, %v; want rewrite", rewrite, err)
	}

	payload := f.ChecksumTablePayload()
	if len(payload) != 8 || binary.LittleEndian.Uint32(payload[4:]) != crc32.ChecksumIEEE(pcm16(ramp(10))) {
		t.Fatalf("payload % x", payload)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"wrong form", chunktest.RIFF("WAVE")},
		{"truncated", chunktest.RIFF("DLS ", chunktest.Chunk("vers", make([]byte, 8)))[:20]},
		{"short vers", chunktest.RIFF("DLS ", chunktest.Chunk("vers", make([]byte, 4)))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := chunktest.WriteFile(t, dir, tc.name+".gig", tc.data)

			_, err := Open(path, Options{})
			if !errors.Is(err, samplelib.ErrFormat) {
				t.Fatalf("expected a format error, got %v", err)
			}
		})
	}

	if _, err := Open(dir+"/missing.gig", Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}

func TestBadRecordsAreSkipped(t *testing.T) {
	waves := []chunk.Node{
		waveNode(testWave{channels: 1, bits: 16, data: pcm16(ramp(10))}),
		chunktest.List("wave", chunktest.Chunk("data", []byte{1, 2})),
	}

	region := regionNode(testRegion{
		keyHigh:    127,
		dims:       []DimensionDef{{Type: DimensionLayer, Bits: 1, Zones: 2}},
		pool:       []uint32{0, 9},
		dimRegions: []testDimRegion{{}, {}},
	}, false)

	broken := regionNode(testRegion{
		keyHigh:    127,
		dims:       []DimensionDef{{Type: DimensionLayer, Bits: 2, Zones: 4}},
		pool:       []uint32{0},
		dimRegions: []testDimRegion{{}},
	}, false)

	f := testFile{
		waves:       waves,
		instruments: []chunk.Node{instrumentNode("x", 0, 0, []chunk.Node{region, broken})},
	}.open(t)

	if len(f.Samples) != 2 || f.Samples[1] != nil {
		t.Fatalf("samples %v", f.Samples)
	}

	ins := f.Instruments[0]
	if len(ins.Regions) != 1 {
		t.Fatalf("%d regions, broken region not skipped", len(ins.Regions))
	}

	r := ins.Regions[0]
	if r.DimensionRegions[0].SampleIndex != 0 || r.DimensionRegions[1].SampleIndex != -1 {
		t.Fatalf("sample indices %d/%d", r.DimensionRegions[0].SampleIndex, r.DimensionRegions[1].SampleIndex)
	}

	if _, err := f.SampleOf(r.DimensionRegions[1]); !errors.Is(err, ErrNoSample) {
		t.Fatalf("expected ErrNoSample, got %v", err)
	}

	var ie *samplelib.IndexError

	found := false
	for _, err := range f.Skipped {
		if errors.As(err, &ie) {
			found = true
		}
	}

	if !found || len(f.Skipped) < 3 {
		t.Fatalf("skipped records %v", f.Skipped)
	}

	// without a group list a default group exists
	if len(f.Groups) != 1 || f.Groups[0].Name != "Default Group" {
		t.Fatalf("groups %+v", f.Groups)
	}
}

func TestUnreadableWaveKeepsPoolPosition(t *testing.T) {
	waves := []chunk.Node{
		chunktest.List("wave", chunktest.Chunk("fmt ", []byte{1, 0}), chunktest.Chunk("data", []byte{1, 2})),
		waveNode(testWave{name: "good", channels: 1, bits: 16, data: pcm16(ramp(10))}),
	}

	crc := chunktest.LE().U32(0).U32(0).U32(checksumMarker).U32(crc32.ChecksumIEEE(pcm16(ramp(10))))

	for _, usePtbl := range []bool{false, true} {
		region := regionNode(testRegion{
			keyHigh:    127,
			dims:       []DimensionDef{{Type: DimensionLayer, Bits: 1, Zones: 2}},
			pool:       []uint32{1, 0},
			dimRegions: []testDimRegion{{}, {}},
		}, false)

		f := testFile{
			usePtbl:     usePtbl,
			waves:       waves,
			instruments: []chunk.Node{instrumentNode("x", 0, 0, []chunk.Node{region})},
			extra:       []chunk.Node{chunktest.Chunk("3crc", crc.Bytes())},
		}.open(t)

		if len(f.Samples) != 2 || f.Samples[0] != nil || f.Samples[1].Name != "good" || f.Samples[1].Index != 1 {
			t.Fatalf("ptbl %v: samples %v", usePtbl, f.Samples)
		}

		dr := f.Instruments[0].Regions[0].DimensionRegions
		if dr[0].SampleIndex != 1 || dr[1].SampleIndex != -1 {
			t.Fatalf("ptbl %v: sample indices %d/%d", usePtbl, dr[0].SampleIndex, dr[1].SampleIndex)
		}

		if _, err := f.Sample(0); !errors.Is(err, errUnreadableSample) {
			t.Fatalf("ptbl %v: Sample(0) = %v", usePtbl, err)
		}

		if err := f.VerifySampleChecksum(1); err != nil {
			t.Fatalf("ptbl %v: checksum of sample 1: %v", usePtbl, err)
		}

		if got := f.poolIndexOf(1); got != 1 {
			t.Fatalf("ptbl %v: poolIndexOf(1) = %d", usePtbl, got)
		}

		// the in-memory container cannot be patched, but the table is rebuilt
		if _, err := f.RebuildSampleChecksumTable(); !errors.Is(err, os.ErrPermission) {
			t.Fatalf("ptbl %v: RebuildSampleChecksumTable: %v", usePtbl, err)
		}

		if payload := f.ChecksumTablePayload(); !bytes.Equal(payload, crc.Bytes()) {
			t.Fatalf("ptbl %v: payload % x", usePtbl, payload)
		}

		f.Close()
	}
}

func TestLoadSampleData(t *testing.T) {
	want := sine16(3000, 2)
	f := testFile{waves: []chunk.Node{waveNode(testWave{
		channels:   2,
		bits:       16,
		compressed: true,
		data:       compress16(t, 1, 2, want),
	})}}.open(t)

	s := f.Samples[0]

	buf, err := s.LoadSampleDataWithNullSamplesExtension(5000, 100)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if buf.Size != 3000*4 || buf.NullExtensionSize != 100*4 || len(buf.Data) != 3100*4 {
		t.Fatalf("size %d null %d len %d", buf.Size, buf.NullExtensionSize, len(buf.Data))
	}

	got := decode16(buf.Data[:buf.Size])
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("value %d = %d, want %d", i, got[i], want[i])
		}
	}

	for _, b := range buf.Data[buf.Size:] {
		if b != 0 {
			t.Fatal("null extension not silent")
		}
	}

	if s.Cache().Size != buf.Size {
		t.Fatal("Cache does not report the loaded buffer")
	}

	s.ReleaseSampleData()

	if s.Cache().Size != 0 || s.Cache().Data != nil {
		t.Fatal("ReleaseSampleData kept the cache")
	}
}
