package chromatogram

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ErrFormat is returned for files that do not follow the chromatogram CSV layout.
var ErrFormat = errors.New("chromatogram: malformed file")

// Cache provides thread-safe caching of loaded chromatograms keyed by file path.
//
// Cached chromatograms remain in memory until removed via Evict or Clear.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*Chromatogram
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]*Chromatogram),
	}
}

// Load returns the cached chromatogram for path, reading it from disk on first use.
//
// The path string is the cache key; relative and absolute paths to the same
// file are cached separately.
func (c *Cache) Load(path string) (*Chromatogram, error) {
	c.mu.RLock()
	if chrom, ok := c.items[path]; ok {
		c.mu.RUnlock()
		return chrom, nil
	}
	c.mu.RUnlock()

	chrom, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items[path] = chrom
	c.mu.Unlock()

	return chrom, nil
}

// Clear removes every cached chromatogram.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*Chromatogram)
	c.mu.Unlock()
}

// Evict removes one chromatogram from the cache. Unknown paths are ignored.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.items, path)
	c.mu.Unlock()
}

// Len returns the number of cached chromatograms.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// ReadFile parses the chromatogram CSV file at path.
func ReadFile(path string) (*Chromatogram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromatogram: %w", err)
	}
	defer f.Close()

	chrom, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	chrom.Path = path
	return chrom, nil
}

// Read parses chromatogram CSV from r.
func Read(r io.Reader) (*Chromatogram, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrFormat, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: need a time column and at least one trace, got %d columns", ErrFormat, len(header))
	}

	chrom := &Chromatogram{
		TraceNames: make([]string, len(header)-1),
		Traces:     make([][]float64, len(header)-1),
	}
	for i, name := range header[1:] {
		chrom.TraceNames[i] = strings.TrimSpace(name)
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
		}

		t, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad time %q", ErrFormat, line, rec[0])
		}
		if n := len(chrom.Times); n > 0 && t <= chrom.Times[n-1] {
			return nil, fmt.Errorf("%w: line %d: time %v does not increase", ErrFormat, line, t)
		}
		chrom.Times = append(chrom.Times, t)

		for i, field := range rec[1:] {
			v := 0.0
			if s := strings.TrimSpace(field); s != "" {
				v, err = strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: bad intensity %q", ErrFormat, line, field)
				}
			}
			chrom.Traces[i] = append(chrom.Traces[i], v)
		}
	}

	if len(chrom.Times) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrFormat, len(chrom.Times))
	}
	return chrom, nil
}

// Info summarizes a loaded chromatogram.
type Info struct {
	Path          string   `json:"path"`
	Points        int      `json:"points"`
	Traces        []string `json:"traces"`
	StartTime     float64  `json:"start_time"`
	EndTime       float64  `json:"end_time"`
	MaxIntensity  float64  `json:"max_intensity"`
	ApexTime      float64  `json:"apex_time"`
	FileSizeBytes int64    `json:"file_size_bytes"`
}

// LoadInfo loads path through cache and returns its summary.
func LoadInfo(cache *Cache, path string) (*Info, error) {
	chrom, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info := chrom.Info()
	info.FileSizeBytes = stat.Size()
	return info, nil
}
