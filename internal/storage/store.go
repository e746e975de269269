// Package storage keeps trajectory snapshots on disk, one directory per run
// holding metadata.json and samples.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/attractors/internal/dynamo"
)

var ErrNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Attractor  string             `json:"attractor"`
	Params     map[string]float64 `json:"params,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       []float64          `json:"seed,omitempty"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Integrator string             `json:"integrator"`
	Engine     string             `json:"engine"`
	Samples    int                `json:"samples"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// Save writes a new run and returns its id. ID, Timestamp and Samples are
// filled in by the store.
func (s *Store) Save(meta RunMetadata, samples []dynamo.Sample) (string, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now().UTC()
	meta.Samples = len(samples)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(runDir, "samples.csv"), samples); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSamples(path string, samples []dynamo.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"i", "x", "y", "z"}); err != nil {
		return err
	}
	for i, p := range samples {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(p.X, 'g', -1, 64),
			strconv.FormatFloat(p.Y, 'g', -1, 64),
			strconv.FormatFloat(p.Z, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata for %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]dynamo.Sample, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	f, err := os.Open(filepath.Join(s.baseDir, runID, "samples.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 4
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read samples for %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []dynamo.Sample{}, nil
	}

	out := make([]dynamo.Sample, 0, len(records)-1)
	for line, rec := range records[1:] {
		var v [3]float64
		for j := range v {
			v[j], err = strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("samples.csv line %d: %w", line+2, err)
			}
		}
		out = append(out, dynamo.Sample{X: v[0], Y: v[1], Z: v[2]})
	}
	return out, nil
}

type ExportData struct {
	RunMetadata
	Points [][3]float64 `json:"points"`
}

// ExportJSON writes the run's metadata and samples as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	data := ExportData{RunMetadata: *meta, Points: make([][3]float64, len(samples))}
	for i, p := range samples {
		data.Points[i] = [3]float64{p.X, p.Y, p.Z}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
