package gig

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/samplelib/chunk"
	"github.com/cwbudde/samplelib/pcm"
)

// compress16 encodes interleaved 16-bit samples with one mode for every
// frame and channel.
func compress16(t *testing.T, mode, channels int, samples []int) []byte {
	t.Helper()

	var out []byte

	n := len(samples) / channels
	for start := 0; start < n; start += 2048 {
		end := min(start+2048, n)

		for range channels {
			out = append(out, byte(mode))
		}

		type state struct{ y, dy int }

		st := make([]state, channels)

		if mode == 1 {
			for c := range channels {
				y := samples[start*channels+c]
				st[c] = state{y: y}
				out = append(out, pcm16([]int{y, 0})...)
			}
		}

		for i := start; i < end; i++ {
			for c := range channels {
				v := samples[i*channels+c]

				if mode == 0 {
					out = append(out, pcm16([]int{v})...)
					continue
				}

				dy := st[c].y - v
				d := st[c].dy - dy

				if d < -128 || d > 127 {
					t.Fatalf("delta %d at sample %d does not fit 8 bits", d, i)
				}

				out = append(out, byte(int8(d)))
				st[c] = state{y: v, dy: dy}
			}
		}
	}

	return out
}

// compress24 encodes 24-bit samples per channel block with one mode for
// every frame and channel.
func compress24(t *testing.T, mode int, channels [][]int32) []byte {
	t.Helper()

	var out []byte

	n := len(channels[0])
	for start := 0; start < n; start += 256 {
		end := min(start+256, n)

		for range channels {
			out = append(out, byte(mode))
		}

		if mode != 2 {
			for _, ch := range channels {
				p := make([]byte, 12)
				store24(p, ch[start])
				store24(p[3:], ch[start])
				out = append(out, p...)
			}
		}

		for _, ch := range channels {
			var y, dy, ddy, dddy int32 = ch[start], 0, 0, 0

			var xs []int32

			for i := start; i < end; i++ {
				if mode == 2 {
					b := make([]byte, 3)
					store24(b, ch[i])
					out = append(out, b...)

					continue
				}

				x := y - dy - ddy + dddy - ch[i]
				dddy -= x
				ddy -= dddy
				dy = -dy - ddy
				y += dy
				xs = append(xs, x)
			}

			switch mode {
			case 3:
				for _, x := range xs {
					if x < math.MinInt16 || x > math.MaxInt16 {
						t.Fatalf("delta %d does not fit 16 bits", x)
					}

					out = append(out, pcm16([]int{int(x)})...)
				}
			case 4:
				if len(xs)%2 != 0 {
					t.Fatalf("mode 4 fixtures need an even sample count per frame")
				}

				for i := 0; i < len(xs); i += 2 {
					lo, hi := xs[i], xs[i+1]
					if lo < -2048 || lo > 2047 || hi < -2048 || hi > 2047 {
						t.Fatalf("deltas %d/%d do not fit 12 bits", lo, hi)
					}

					out = append(out, byte(lo), byte(lo>>8)&0x0f|byte(hi<<4), byte(hi>>4))
				}
			case 5:
				for _, x := range xs {
					if x < -128 || x > 127 {
						t.Fatalf("delta %d does not fit 8 bits", x)
					}

					out = append(out, byte(int8(x)))
				}
			}
		}
	}

	return out
}

func sine16(n, channels int) []int {
	out := make([]int, n*channels)
	for i := range n {
		for c := range channels {
			out[i*channels+c] = int(3000 * math.Sin(2*math.Pi*float64(i)/float64(200+50*c)))
		}
	}

	return out
}

func sine24(n int, amp float64, period int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(amp * math.Sin(2*math.Pi*float64(i)/float64(period)))
	}

	return out
}

func openCompressed(t *testing.T, w testWave) *Sample {
	t.Helper()

	w.compressed = true
	f := testFile{waves: []chunk.Node{waveNode(w)}}.open(t)

	if len(f.Samples) != 1 {
		t.Fatalf("expected 1 sample, got %d (skipped %v)", len(f.Samples), f.Skipped)
	}

	s := f.Samples[0]
	if !s.Compressed {
		t.Fatal("sample not marked compressed")
	}

	return s
}

func readAll(t *testing.T, s *Sample, step int, buf *pcm.Buffer) []byte {
	t.Helper()

	out := make([]byte, 0, int(s.TotalFrames())*s.FrameSize())
	dst := make([]byte, step*s.FrameSize())

	for {
		n, err := s.Read(dst, step, buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}

		if n == 0 {
			return out
		}

		out = append(out, dst[:n*s.FrameSize()]...)
	}
}

func TestCompressed16(t *testing.T) {
	testCases := []struct {
		name     string
		mode     int
		channels int
		frames   int
	}{
		{"mono uncompressed", 0, 1, 5000},
		{"mono 8-bit deltas", 1, 1, 5000},
		{"stereo uncompressed", 0, 2, 4200},
		{"stereo 8-bit deltas", 1, 2, 4200},
		{"exact frame", 1, 1, 4096},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			want := sine16(tc.frames, tc.channels)
			s := openCompressed(t, testWave{
				name:     tc.name,
				channels: tc.channels,
				bits:     16,
				data:     compress16(t, tc.mode, tc.channels, want),
			})

			if s.TotalFrames() != int64(tc.frames) {
				t.Fatalf("TotalFrames = %d, want %d", s.TotalFrames(), tc.frames)
			}

			for _, step := range []int{tc.frames, 1000, 333} {
				s.SetPos(0, chunk.Start)

				got := decode16(readAll(t, s, step, nil))
				if len(got) != len(want) {
					t.Fatalf("step %d: decoded %d values, want %d", step, len(got), len(want))
				}

				for i := range want {
					if got[i] != want[i] {
						t.Fatalf("step %d: value %d = %d, want %d", step, i, got[i], want[i])
					}
				}
			}
		})
	}
}

func TestCompressed16Seek(t *testing.T) {
	want := sine16(5000, 1)
	s := openCompressed(t, testWave{channels: 1, bits: 16, data: compress16(t, 1, 1, want)})

	for _, pos := range []int64{0, 5, 2047, 2048, 3000, 4099, 4999} {
		if got := s.SetPos(pos, chunk.Start); got != pos {
			t.Fatalf("SetPos(%d) = %d", pos, got)
		}

		dst := make([]byte, 200)

		n, err := s.Read(dst, 100, nil)
		if err != nil {
			t.Fatalf("Read at %d: %v", pos, err)
		}

		if wantN := min(100, 5000-int(pos)); n != wantN {
			t.Fatalf("Read at %d returned %d frames, want %d", pos, n, wantN)
		}

		got := decode16(dst[:n*2])
		for i, v := range got {
			if v != want[int(pos)+i] {
				t.Fatalf("at %d+%d: got %d, want %d", pos, i, v, want[int(pos)+i])
			}
		}

		if s.Pos() != pos+int64(n) {
			t.Fatalf("Pos after read = %d, want %d", s.Pos(), pos+int64(n))
		}
	}
}

func TestCompressed24(t *testing.T) {
	testCases := []struct {
		name string
		mode int
		left []int32
	}{
		{"uncompressed", 2, sine24(700, 4000000, 300)},
		{"16-bit deltas", 3, sine24(700, 100000, 256)},
		{"12-bit deltas", 4, sine24(700, 50000, 256)},
		{"8-bit deltas", 5, sine24(700, 1000, 64)},
	}

	for _, tc := range testCases {
		t.Run("mono "+tc.name, func(t *testing.T) {
			s := openCompressed(t, testWave{channels: 1, bits: 24, data: compress24(t, tc.mode, [][]int32{tc.left})})

			if s.TotalFrames() != int64(len(tc.left)) {
				t.Fatalf("TotalFrames = %d, want %d", s.TotalFrames(), len(tc.left))
			}

			got := decode24(readAll(t, s, 100, nil))
			if len(got) != len(tc.left) {
				t.Fatalf("decoded %d values, want %d", len(got), len(tc.left))
			}

			for i := range got {
				if got[i] != tc.left[i] {
					t.Fatalf("value %d = %d, want %d", i, got[i], tc.left[i])
				}
			}

			// 600 lies past the only frame table entry
			s.SetPos(600, chunk.Start)

			dst := make([]byte, 100*3)

			n, err := s.Read(dst, 100, nil)
			if err != nil || n != 100 {
				t.Fatalf("Read after seek = %d, %v", n, err)
			}

			for i, v := range decode24(dst) {
				if v != tc.left[600+i] {
					t.Fatalf("after seek value %d = %d, want %d", i, v, tc.left[600+i])
				}
			}
		})

		t.Run("stereo "+tc.name, func(t *testing.T) {
			right := make([]int32, len(tc.left))
			for i, v := range tc.left {
				right[i] = -v / 2
			}

			s := openCompressed(t, testWave{channels: 2, bits: 24, data: compress24(t, tc.mode, [][]int32{tc.left, right})})

			got := decode24(readAll(t, s, 300, nil))
			if len(got) != 2*len(tc.left) {
				t.Fatalf("decoded %d values, want %d", len(got), 2*len(tc.left))
			}

			for i := range tc.left {
				if got[2*i] != tc.left[i] || got[2*i+1] != right[i] {
					t.Fatalf("frame %d = %d/%d, want %d/%d", i, got[2*i], got[2*i+1], tc.left[i], right[i])
				}
			}
		})
	}
}

func TestDecompressionBuffer(t *testing.T) {
	want := sine16(5000, 1)
	s := openCompressed(t, testWave{channels: 1, bits: 16, data: compress16(t, 1, 1, want)})

	dst := make([]byte, 5000*2)

	tiny := &pcm.Buffer{Data: make([]byte, 16)}
	if _, err := s.Read(dst, 5000, tiny); !errors.Is(err, errSmallBuffer) {
		t.Fatalf("expected errSmallBuffer, got %v", err)
	}

	// room for one worst case frame only
	small := &pcm.Buffer{Data: make([]byte, s.worstCaseFrameSize)}
	s.SetPos(0, chunk.Start)

	n, err := s.Read(dst, 5000, small)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if n == 0 || n >= 5000 {
		t.Fatalf("expected a reduced read, got %d frames", n)
	}

	for i, v := range decode16(dst[:n*2]) {
		if v != want[i] {
			t.Fatalf("value %d = %d, want %d", i, v, want[i])
		}
	}

	big := CreateDecompressionBuffer(5000)
	s.SetPos(0, chunk.Start)

	if n, err := s.Read(dst, 5000, big); err != nil || n != 5000 {
		t.Fatalf("Read with large buffer = %d, %v", n, err)
	}
}

func TestGuessSize(t *testing.T) {
	s16 := &Sample{BitDepth: 16, Channels: 1, worstCaseFrameSize: 4097}
	if got := s16.GuessSize(2048); got != 2048+2*5+4097 {
		t.Fatalf("16-bit GuessSize = %d", got)
	}

	s24 := &Sample{BitDepth: 24, Channels: 2, worstCaseFrameSize: 1538}
	if got := s24.GuessSize(512); got != (512+256+2*13)*2+1538 {
		t.Fatalf("24-bit GuessSize = %d", got)
	}
}

func TestSetPosFromEnd(t *testing.T) {
	want := sine16(5000, 1)
	plain := testFile{waves: []chunk.Node{waveNode(testWave{channels: 1, bits: 16, data: pcm16(want)})}}.open(t).Samples[0]
	packed := openCompressed(t, testWave{channels: 1, bits: 16, data: compress16(t, 1, 1, want)})

	tests := []struct {
		offset int64
		want   int64
	}{
		{0, 4999},
		{1, 4998},
		{4999, 0},
		{6000, 0},
	}

	for _, s := range []*Sample{plain, packed} {
		for _, tt := range tests {
			if got := s.SetPos(tt.offset, chunk.End); got != tt.want {
				t.Fatalf("compressed %v: SetPos(%d, End) = %d, want %d", s.Compressed, tt.offset, got, tt.want)
			}
		}

		s.SetPos(0, chunk.End)

		dst := make([]byte, 8)

		n, err := s.Read(dst, 4, nil)
		if err != nil || n != 1 {
			t.Fatalf("compressed %v: read at last frame: %d, %v", s.Compressed, n, err)
		}

		if got := decode16(dst[:2]); got[0] != want[4999] {
			t.Fatalf("compressed %v: last frame %d, want %d", s.Compressed, got[0], want[4999])
		}
	}
}
