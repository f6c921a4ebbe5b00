package samples

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cwbudde/samplelib"
	"github.com/cwbudde/samplelib/gig"
	"github.com/google/uuid"
	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/sirupsen/logrus"
)

// ErrorFunc reports a failure to the user.
type ErrorFunc func(title, message string)

type monolithBinding struct {
	path  string
	table map[string]int
}

// Manager owns every decoded sample. Loads, attach, release and binding
// must run on one control context; Purge, Report and GetSample may run
// from anywhere.
type Manager struct {
	cfg    Config
	raise  ErrorFunc
	hashes HashCache
	log    *logrus.Entry
	check  controlChecker

	mu        sync.Mutex
	samples   map[idKey]*Sample
	aliases   map[idKey]SampleID
	gigFiles  map[string]*gig.File
	sf2Files  map[string]*meltysynth.SoundFont
	monoliths map[string]*Monolith
	binding   *monolithBinding

	// pins counts loads in flight per handle path; purge keeps pinned
	// handles open.
	pins map[string]int
}

// NewManager returns a manager. A nil raise logs errors instead. A nil
// cache opens a badger cache in cfg.HashCacheDir, or hashes in memory when
// no directory is set or the database cannot be opened.
func NewManager(cfg Config, raise ErrorFunc, hashes HashCache) *Manager {
	if cfg.MonolithReadChunk <= 0 {
		cfg.MonolithReadChunk = DefaultConfig().MonolithReadChunk
	}

	log := logrus.NewEntry(cfg.logger()).WithField("component", "samples")

	if hashes == nil && cfg.HashCacheDir != "" {
		bc, err := OpenBadgerHashCache(cfg.HashCacheDir)
		if err != nil {
			log.WithError(err).Warn("hash cache unavailable, hashing in memory")
		} else {
			hashes = bc
		}
	}

	if hashes == nil {
		hashes = NewMemoryHashCache()
	}

	m := &Manager{
		cfg:       cfg,
		raise:     raise,
		hashes:    hashes,
		log:       log,
		samples:   map[idKey]*Sample{},
		aliases:   map[idKey]SampleID{},
		gigFiles:  map[string]*gig.File{},
		sf2Files:  map[string]*meltysynth.SoundFont{},
		monoliths: map[string]*Monolith{},
		pins:      map[string]int{},
	}
	m.check = controlChecker{strict: cfg.StrictThreading, log: log}

	return m
}

// Logger returns the manager's log entry.
func (m *Manager) Logger() *logrus.Entry {
	return m.log
}

// ReportError logs err and hands it to the error callback.
func (m *Manager) ReportError(title string, err error) {
	m.fail(title, err)
}

// SearchPaths returns the directories searched for moved sample files.
func (m *Manager) SearchPaths() []string {
	return m.cfg.SearchPaths
}

func (m *Manager) fail(title string, err error) {
	m.log.WithError(err).Warn(title)

	if m.raise != nil {
		m.raise(title, err.Error())
	}
}

// find returns the cached sample at addr's container position.
func (m *Manager) find(addr Address) *Sample {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.samples {
		if s.Address.samePosition(addr) {
			return s
		}
	}

	return nil
}

// publish inserts s under id. An existing entry with the same identity
// wins.
func (m *Manager) publish(id SampleID, s *Sample) SampleID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.samples[id.key()]; ok {
		return old.ID
	}

	s.ID = id
	m.samples[id.key()] = s

	m.log.WithFields(logrus.Fields{
		"sample_id": id.String(),
		"path":      s.Address.Path,
		"type":      s.Address.Type,
	}).Debug("sample loaded")

	return id
}

// LoadSampleByPath loads a single sample file.
func (m *Manager) LoadSampleByPath(path string) (SampleID, bool) {
	defer m.check.enter("LoadSampleByPath")()

	t, ok := SourceTypeOf(path)
	if !ok || t == SourceSF2 || t == SourceGIG || t == SourceSCXTMonolith {
		m.fail("Unsupported sample file", fmt.Errorf("%s: %w", path, errUnsupported))
		return SampleID{}, false
	}

	return m.loadFile(FileAddress(t, path), SampleID{})
}

// loadFile loads a single file address. A non-zero id replaces the
// content derived identity.
func (m *Manager) loadFile(addr Address, id SampleID) (SampleID, bool) {
	if s := m.find(addr); s != nil {
		return s.ID, true
	}

	if s, ok := m.loadBound(addr, id); ok {
		return s, true
	}

	sum, err := fileMD5(addr.Path, m.hashes)
	if err != nil {
		m.fail("Unable to load sample", fmt.Errorf("%s: %w", addr.Path, err))
		return SampleID{}, false
	}

	s, err := decodeFile(addr.Type, addr.Path)
	if err != nil {
		m.fail("Unable to load sample", err)
		return SampleID{}, false
	}

	s.Address.MD5 = sum

	if id.IsZero() {
		id = FromAddress(s.Address)
	}

	return m.publish(id, s), true
}

// LoadSampleFromGIG loads wave pool sample region of a gig file. A nil f
// opens path and keeps it open until purge finds it unused.
func (m *Manager) LoadSampleFromGIG(path, md5 string, f *gig.File, preset, instrument, region int) (SampleID, bool) {
	defer m.check.enter("LoadSampleFromGIG")()

	addr := Address{Type: SourceGIG, Path: path, MD5: md5, Preset: preset, Instrument: instrument, Region: region}

	return m.loadGIG(addr, f, SampleID{})
}

func (m *Manager) loadGIG(addr Address, f *gig.File, id SampleID) (SampleID, bool) {
	if s := m.find(addr); s != nil {
		return s.ID, true
	}

	if s, ok := m.loadBound(addr, id); ok {
		return s, true
	}

	if addr.MD5 == "" {
		sum, err := fileMD5(addr.Path, m.hashes)
		if err != nil {
			m.fail("Unable to load GIG sample", fmt.Errorf("%s: %w", addr.Path, err))
			return SampleID{}, false
		}

		addr.MD5 = sum
	}

	if f == nil {
		var (
			unpin func()
			err   error
		)

		if f, unpin, err = m.gigHandle(addr.Path); err != nil {
			m.fail("Unable to open GIG file", err)
			return SampleID{}, false
		}
		defer unpin()
	}

	s, err := decodeGIGSample(addr, f)
	if err != nil {
		m.fail("Unable to load GIG sample", fmt.Errorf("%s sample %d: %w", addr.Path, addr.Region, err))
		return SampleID{}, false
	}

	if id.IsZero() {
		id = FromAddress(addr)
	}

	return m.publish(id, s), true
}

// pinLocked marks the handle of path as in use until the returned func
// runs. m.mu must be held.
func (m *Manager) pinLocked(path string) func() {
	m.pins[path]++

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.pins[path]--; m.pins[path] <= 0 {
			delete(m.pins, path)
		}
	}
}

// gigHandle returns the cached gig file of path, opening it on first use.
// The handle stays pinned until unpin is called.
func (m *Manager) gigHandle(path string) (f *gig.File, unpin func(), err error) {
	m.mu.Lock()
	if f, ok := m.gigFiles[path]; ok {
		unpin = m.pinLocked(path)
		m.mu.Unlock()

		return f, unpin, nil
	}
	m.mu.Unlock()

	opened, err := gig.Open(path, gig.Options{})
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.gigFiles[path]; ok {
		opened.Close()
		return f, m.pinLocked(path), nil
	}

	m.gigFiles[path] = opened

	return opened, m.pinLocked(path), nil
}

// LoadSampleFromSF2 loads the sample of one instrument region of a
// soundfont: preset indexes the presets, instrument the preset's regions
// and region the instrument's regions.
func (m *Manager) LoadSampleFromSF2(path, md5 string, sf *meltysynth.SoundFont, preset, instrument, region int) (SampleID, bool) {
	defer m.check.enter("LoadSampleFromSF2")()

	addr := Address{Type: SourceSF2, Path: path, MD5: md5, Preset: preset, Instrument: instrument, Region: region}

	return m.loadSF2(addr, sf, SampleID{})
}

func (m *Manager) loadSF2(addr Address, sf *meltysynth.SoundFont, id SampleID) (SampleID, bool) {
	if s := m.find(addr); s != nil {
		return s.ID, true
	}

	if s, ok := m.loadBound(addr, id); ok {
		return s, true
	}

	if addr.MD5 == "" {
		sum, err := fileMD5(addr.Path, m.hashes)
		if err != nil {
			m.fail("Unable to load SF2 sample", fmt.Errorf("%s: %w", addr.Path, err))
			return SampleID{}, false
		}

		addr.MD5 = sum
	}

	if sf == nil {
		var (
			unpin func()
			err   error
		)

		if sf, unpin, err = m.sf2Handle(addr.Path); err != nil {
			m.fail("Unable to open SF2 file", err)
			return SampleID{}, false
		}
		defer unpin()
	}

	s, err := decodeSF2Sample(addr, sf)
	if err != nil {
		m.fail("Unable to load SF2 sample", err)
		return SampleID{}, false
	}

	if id.IsZero() {
		id = FromAddress(addr)
	}

	return m.publish(id, s), true
}

func (m *Manager) sf2Handle(path string) (sf *meltysynth.SoundFont, unpin func(), err error) {
	m.mu.Lock()
	if sf, ok := m.sf2Files[path]; ok {
		unpin = m.pinLocked(path)
		m.mu.Unlock()

		return sf, unpin, nil
	}
	m.mu.Unlock()

	opened, err := OpenSoundFont(path)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sf, ok := m.sf2Files[path]; ok {
		return sf, m.pinLocked(path), nil
	}

	m.sf2Files[path] = opened

	return opened, m.pinLocked(path), nil
}

// OpenSoundFont parses the SF2 file at path.
func OpenSoundFont(path string) (*meltysynth.SoundFont, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sf, err := meltysynth.NewSoundFont(f)
	if err != nil {
		return nil, formatError("sf2", path, "soundfont", err)
	}

	return sf, nil
}

// LoadSampleFromSCXTMonolith loads entry region of the monolith at path.
func (m *Manager) LoadSampleFromSCXTMonolith(path, md5 string, instrument, region int) (SampleID, bool) {
	defer m.check.enter("LoadSampleFromSCXTMonolith")()

	addr := Address{Type: SourceSCXTMonolith, Path: path, MD5: md5, Preset: -1, Instrument: instrument, Region: region}

	return m.loadMonolith(addr, SampleID{})
}

func (m *Manager) loadMonolith(addr Address, id SampleID) (SampleID, bool) {
	if s := m.find(addr); s != nil {
		return s.ID, true
	}

	mono, unpin, err := m.monolithHandle(addr.Path)
	if err != nil {
		m.fail("Unable to open monolith", err)
		return SampleID{}, false
	}
	defer unpin()

	s, err := mono.Sample(addr.Region, m.cfg.MonolithReadChunk)
	if err != nil {
		m.fail("Unable to load monolith sample", err)
		return SampleID{}, false
	}

	s.Address = addr

	if id.IsZero() {
		id = mono.Records[addr.Region].ID
	}

	return m.publish(id, s), true
}

func (m *Manager) monolithHandle(path string) (mono *Monolith, unpin func(), err error) {
	m.mu.Lock()
	if mono, ok := m.monoliths[path]; ok {
		unpin = m.pinLocked(path)
		m.mu.Unlock()

		return mono, unpin, nil
	}
	m.mu.Unlock()

	opened, err := OpenMonolith(path)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if mono, ok := m.monoliths[path]; ok {
		opened.Close()
		return mono, m.pinLocked(path), nil
	}

	m.monoliths[path] = opened

	return opened, m.pinLocked(path), nil
}

// BindMonolith redirects every address whose key is in table to the
// monolith entry it maps to.
func (m *Manager) BindMonolith(monolithPath string, table map[string]int) {
	defer m.check.enter("BindMonolith")()

	m.mu.Lock()
	m.binding = &monolithBinding{path: monolithPath, table: table}
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"path": monolithPath, "entries": len(table)}).Info("monolith bound")
}

// UnbindMonolith stops redirecting addresses.
func (m *Manager) UnbindMonolith() {
	defer m.check.enter("UnbindMonolith")()

	m.mu.Lock()
	m.binding = nil
	m.mu.Unlock()
}

// loadBound loads addr from the bound monolith while keeping the identity
// the address would have had.
func (m *Manager) loadBound(addr Address, id SampleID) (SampleID, bool) {
	m.mu.Lock()
	b := m.binding
	m.mu.Unlock()

	if b == nil {
		return SampleID{}, false
	}

	idx, ok := b.table[addr.Key()]
	if !ok {
		return SampleID{}, false
	}

	mono, unpin, err := m.monolithHandle(b.path)
	if err != nil {
		m.log.WithError(err).WithField("path", b.path).Warn("bound monolith unavailable")
		return SampleID{}, false
	}
	defer unpin()

	s, err := mono.Sample(idx, m.cfg.MonolithReadChunk)
	if err != nil {
		m.log.WithError(err).WithField("path", b.path).Warn("bound monolith entry unavailable")
		return SampleID{}, false
	}

	rec := mono.Records[idx]
	s.Address = addr

	if addr.MD5 == "" {
		s.Address.MD5 = rec.Address.MD5
	}

	if id.IsZero() {
		id = rec.ID
	}

	return m.publish(id, s), true
}

// LoadSampleFromAddress loads whatever addr points at.
func (m *Manager) LoadSampleFromAddress(addr Address) (SampleID, bool) {
	defer m.check.enter("LoadSampleFromAddress")()

	return m.loadAddress(addr, SampleID{})
}

func (m *Manager) loadAddress(addr Address, id SampleID) (SampleID, bool) {
	switch addr.Type {
	case SourceGIG:
		return m.loadGIG(addr, nil, id)
	case SourceSF2:
		return m.loadSF2(addr, nil, id)
	case SourceSCXTMonolith:
		return m.loadMonolith(addr, id)
	case SourceWAV, SourceAIFF, SourceMP3, SourceOGG, SourceFLAC, SourceKSF:
		return m.loadFile(addr, id)
	}

	m.fail("Unsupported sample address", fmt.Errorf("%s (%s): %w", addr.Path, addr.Type, errUnsupported))

	return SampleID{}, false
}

// LoadSampleByFileAddressToID restores a persisted sample under its old
// identity. When the file is gone (and no monolith covers it) a missing
// sample with a fresh identity is created and id is aliased to it, so id
// still resolves.
func (m *Manager) LoadSampleByFileAddressToID(addr Address, id SampleID) (SampleID, bool) {
	defer m.check.enter("LoadSampleByFileAddressToID")()

	if _, ok := m.GetSample(id); ok {
		return id, true
	}

	if path, ok := m.locate(addr.Path); ok || m.isBound(addr) {
		addr.Path = path

		got, loaded := m.loadAddress(addr, id)
		if loaded && !got.Equal(id) {
			m.mu.Lock()
			m.aliases[id.key()] = got
			m.mu.Unlock()
		}

		return id, loaded
	}

	placeholder := SampleID{MD5: uuid.NewString(), Preset: -1, Instrument: -1, Region: -1, PathHint: addr.Path}
	s := newPlaceholder(placeholder, addr)

	m.mu.Lock()
	m.samples[placeholder.key()] = s
	m.aliases[id.key()] = placeholder
	m.mu.Unlock()

	err := &samplelib.MissingResourceError{Path: addr.Path, Err: os.ErrNotExist}
	m.log.WithFields(logrus.Fields{
		"sample_id":   id.String(),
		"placeholder": placeholder.MD5,
		"path":        addr.Path,
	}).WithError(err).Warn("sample missing, using placeholder")

	return id, true
}

// locate finds path itself or its base name in the configured search
// paths.
func (m *Manager) locate(path string) (string, bool) {
	if _, err := os.Stat(path); err == nil {
		return path, true
	}

	for _, dir := range m.cfg.SearchPaths {
		p := filepath.Join(dir, filepath.Base(path))
		if _, err := os.Stat(p); err == nil {
			m.log.WithFields(logrus.Fields{"path": path, "found": p}).Info("sample relocated")
			return p, true
		}
	}

	return path, false
}

func (m *Manager) isBound(addr Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.binding == nil {
		return false
	}

	_, ok := m.binding.table[addr.Key()]

	return ok
}

// maxAliasDepth bounds alias chains; a longer chain is a cycle.
const maxAliasDepth = 64

// GetSample resolves aliases and returns the sample.
func (m *Manager) GetSample(id SampleID) (*Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.resolveLocked(id)
}

func (m *Manager) resolveLocked(id SampleID) (*Sample, bool) {
	k := id.key()

	for range maxAliasDepth {
		if s, ok := m.samples[k]; ok {
			return s, true
		}

		next, ok := m.aliases[k]
		if !ok {
			return nil, false
		}

		k = next.key()
	}

	m.log.WithField("sample_id", id.String()).Error("alias cycle")

	return nil, false
}

// Attach registers one more holder of the sample id resolves to.
func (m *Manager) Attach(id SampleID) (*Sample, bool) {
	defer m.check.enter("Attach")()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.resolveLocked(id)
	if !ok {
		return nil, false
	}

	s.holders.Add(1)

	return s, true
}

// Release drops one holder.
func (m *Manager) Release(id SampleID) {
	defer m.check.enter("Release")()

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.resolveLocked(id); ok && s.holders.Load() > 0 {
		s.holders.Add(-1)
	}
}

// PurgeUnreferencedSamples drops every sample no zone holds, aliases to
// them and format handles no remaining sample needs.
func (m *Manager) PurgeUnreferencedSamples() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0

	for k, s := range m.samples {
		if s.holders.Load() == 0 {
			delete(m.samples, k)
			purged++
		}
	}

	for k, target := range m.aliases {
		if _, ok := m.resolveLocked(target); !ok {
			delete(m.aliases, k)
		}
	}

	used := map[string]bool{}
	for _, s := range m.samples {
		used[s.Address.Path] = true
	}

	for path, f := range m.gigFiles {
		if !used[path] && m.pins[path] == 0 {
			if err := f.Close(); err != nil {
				m.log.WithError(err).WithField("path", path).Warn("closing gig file")
			}

			delete(m.gigFiles, path)
		}
	}

	for path := range m.sf2Files {
		if !used[path] && m.pins[path] == 0 {
			delete(m.sf2Files, path)
		}
	}

	for path, mono := range m.monoliths {
		if m.binding != nil && m.binding.path == path {
			continue
		}

		if !used[path] && m.pins[path] == 0 {
			mono.Close()
			delete(m.monoliths, path)
		}
	}

	if purged > 0 {
		m.log.WithFields(logrus.Fields{"purged": purged, "remaining": len(m.samples)}).Info("purged unreferenced samples")
	}

	return purged
}

// Addresses returns every non-missing sample's identity and address,
// sorted by identity.
func (m *Manager) Addresses() []AddressRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []AddressRecord

	for _, s := range m.samples {
		if !s.missing {
			out = append(out, AddressRecord{ID: s.ID, Address: s.Address})
		}
	}

	for k, target := range m.aliases {
		if s, ok := m.resolveLocked(target); ok && s.missing {
			out = append(out, AddressRecord{ID: aliasID(k, s), Address: s.Address})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })

	return out
}

// aliasID rebuilds the original identity of a missing sample, so it is
// persisted under the name zones still use.
func aliasID(k idKey, s *Sample) SampleID {
	return SampleID{MD5: k.md5, Preset: k.preset, Instrument: k.instrument, Region: k.region, PathHint: s.Address.Path}
}

// RelativizeAddresses returns Addresses with root replaced by the
// configured marker.
func (m *Manager) RelativizeAddresses(root string) []AddressRecord {
	return RelativizeAddresses(m.Addresses(), root, m.cfg.RootMarker)
}

// RestoreFromAddresses loads every record, substituting the root marker
// with relativeRoot. It reports whether all records resolved to a
// sample or placeholder.
func (m *Manager) RestoreFromAddresses(records []AddressRecord, relativeRoot string) bool {
	ok := true

	for _, r := range records {
		addr := r.Address
		addr.Path = resolveMarker(addr.Path, relativeRoot, m.cfg.RootMarker)

		if _, loaded := m.LoadSampleByFileAddressToID(addr, r.ID); !loaded {
			ok = false
		}
	}

	return ok
}

// EncodeAddresses writes Addresses as msgpack.
func (m *Manager) EncodeAddresses(w io.Writer) error {
	return EncodeAddresses(w, m.Addresses())
}

// Samples returns the cached samples sorted by identity.
func (m *Manager) Samples() []*Sample {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Sample, 0, len(m.samples))
	for _, s := range m.samples {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })

	return out
}

// Close purges nothing but releases every open format handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	for path, f := range m.gigFiles {
		errs = append(errs, f.Close())
		delete(m.gigFiles, path)
	}

	for path, mono := range m.monoliths {
		errs = append(errs, mono.Close())
		delete(m.monoliths, path)
	}

	clear(m.sf2Files)

	errs = append(errs, m.hashes.Close())

	return errors.Join(errs...)
}
