package gig

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// CurveType selects the family of a velocity response curve.
type CurveType uint8

const (
	CurveNonLinear CurveType = 0
	CurveLinear    CurveType = 1
	CurveSpecial   CurveType = 2
	CurveUnknown   CurveType = 0xff
)

// CutoffController is the controller assigned to the filter cutoff.
type CutoffController uint8

const (
	CutoffControllerNone  CutoffController = 0x00
	CutoffControllerNone2 CutoffController = 0x01
)

// ResponseTable maps a MIDI velocity to a factor in [0, 1]. Tables are
// shared between dimension regions and must not be modified.
type ResponseTable [128]float64

// line segment approximations of the velocity curves, as x/y pairs
var (
	curveLin0 = []int{1, 1, 127, 127}
	curveLin1 = []int{1, 21, 127, 127}
	curveLin2 = []int{1, 45, 127, 127}
	curveLin3 = []int{1, 74, 127, 127}
	curveLin4 = []int{1, 127, 127, 127}

	curveNon0 = []int{1, 4, 24, 5, 57, 17, 92, 57, 122, 127, 127, 127}
	curveNon1 = []int{1, 4, 46, 9, 93, 56, 118, 106, 123, 127, 127, 127}
	curveNon2 = []int{1, 4, 46, 9, 57, 20, 102, 107, 107, 127, 127, 127}
	curveNon3 = []int{1, 15, 10, 19, 67, 73, 80, 80, 90, 98, 98, 127, 127, 127}
	curveNon4 = []int{1, 25, 33, 57, 82, 81, 92, 127, 127, 127}

	curveSpe0 = []int{1, 2, 76, 10, 90, 15, 95, 20, 99, 28, 103, 44, 113, 127, 127, 127}
	curveSpe1 = []int{1, 2, 27, 5, 67, 18, 89, 29, 95, 35, 107, 67, 118, 127, 127, 127}
	curveSpe2 = []int{1, 1, 33, 1, 53, 5, 61, 13, 69, 32, 79, 74, 85, 90, 91, 127, 127, 127}
	curveSpe3 = []int{1, 32, 28, 35, 66, 48, 89, 59, 95, 65, 99, 73, 117, 127, 127, 127}
	curveSpe4 = []int{1, 4, 23, 5, 49, 13, 57, 17, 92, 57, 122, 127, 127, 127}

	// filter cutoff only
	curveSpe5 = []int{1, 2, 30, 5, 60, 19, 77, 70, 83, 85, 88, 106, 91, 127, 127, 127}

	curves = [][]int{
		curveNon0, curveNon1, curveNon2, curveNon3, curveNon4,
		curveLin0, curveLin1, curveLin2, curveLin3, curveLin4,
		curveSpe0, curveSpe1, curveSpe2, curveSpe3, curveSpe4, curveSpe5,
	}
)

// Tables caches response tables by their parameters. One Tables value may
// serve many files; it is safe for concurrent use.
type Tables struct {
	mu     sync.Mutex
	tables map[uint32]*ResponseTable
}

// NewTables returns an empty table cache.
func NewTables() *Tables {
	return &Tables{tables: make(map[uint32]*ResponseTable)}
}

var (
	defaultTablesOnce sync.Once
	defaultTables     *Tables
)

// DefaultTables returns the process wide cache, creating it on first use.
func DefaultTables() *Tables {
	defaultTablesOnce.Do(func() {
		defaultTables = NewTables()
	})

	return defaultTables
}

// Len returns the number of distinct tables built so far.
func (t *Tables) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.tables)
}

// Velocity returns the table for a velocity response curve. Invalid
// parameters fall back to a default curve.
func (t *Tables) Velocity(curve CurveType, depth, scaling uint8) *ResponseTable {
	switch curve {
	case CurveNonLinear, CurveLinear:
		if depth > 4 {
			logrus.Warnf("gig: invalid depth 0x%x for velocity curve type 0x%x", depth, curve)

			depth = 0
			scaling = 0
		}
	case CurveSpecial:
		if depth > 5 {
			logrus.Warnf("gig: invalid depth 0x%x for velocity curve type special", depth)

			depth = 0
			scaling = 0
		}
	default:
		logrus.Warnf("gig: unknown velocity curve type 0x%x", curve)

		curve = CurveLinear
		depth = 0
		scaling = 0
	}

	key := uint32(curve)<<16 | uint32(depth)<<8 | uint32(scaling)

	t.mu.Lock()
	defer t.mu.Unlock()

	if tbl, ok := t.tables[key]; ok {
		return tbl
	}

	tbl := buildTable(curves[int(curve)*5+int(depth)], scaling)
	t.tables[key] = tbl

	return tbl
}

// Cutoff returns the velocity table for the filter cutoff. Two of the
// curves differ from the amplitude ones, and scaling only applies when no
// cutoff controller is assigned.
func (t *Tables) Cutoff(curve CurveType, depth, scale uint8, ctrl CutoffController) *ResponseTable {
	if (curve == CurveLinear && depth == 0) || (curve == CurveSpecial && depth == 4) {
		curve = CurveSpecial
		depth = 5
	}

	if ctrl > CutoffControllerNone2 {
		scale = 0
	}

	return t.Velocity(curve, depth, scale)
}

func buildTable(curve []int, scaling uint8) *ResponseTable {
	tbl := &ResponseTable{}

	// 0 or 20 means no scaling
	s := float64(scaling)
	if s == 0 {
		s = 20
	}

	for x := 1; x < 128; x++ {
		if x > curve[2] {
			curve = curve[2:]
		}

		y := float64(curve[1]) + float64(x-curve[0])*(float64(curve[3]-curve[1])/float64(curve[2]-curve[0]))
		y /= 127

		// scale up for s > 20, down for s < 20 while still ending at 1
		if s < 20 && y >= 0.5 {
			y /= (2-40.0/s)*y + 40.0/s - 1
		} else {
			y *= s / 20.0
		}

		if y > 1 {
			y = 1
		}

		tbl[x] = y
	}

	return tbl
}
