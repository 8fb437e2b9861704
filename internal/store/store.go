// Package store persists solve runs under a base directory: one
// subdirectory per run with a metadata.json and a solution.csv.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

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
	ID         string    `json:"id"`
	Problem    string    `json:"problem"`
	Integrator string    `json:"integrator"`
	Timestamp  time.Time `json:"timestamp"`
	RTol       float64   `json:"rtol"`
	ATol       float64   `json:"atol"`
	Successful bool      `json:"successful"`
}

// Save writes one run: the checkpoint times with their y and yprime rows.
func (s *Store) Save(meta RunMetadata, times []float64, ys, yps [][]float64) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Problem, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	meta.ID = runID
	meta.Timestamp = time.Now()

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "solution.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()
	w := csv.NewWriter(csvFile)
	defer w.Flush()

	n := 0
	if len(ys) > 0 {
		n = len(ys[0])
	}
	header := []string{"t"}
	for i := 0; i < n; i++ {
		header = append(header, fmt.Sprintf("y%d", i))
	}
	for i := 0; i < n; i++ {
		header = append(header, fmt.Sprintf("yprime%d", i))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for row, t := range times {
		rec := []string{strconv.FormatFloat(t, 'g', -1, 64)}
		for _, v := range ys[row] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, v := range yps[row] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	return runID, nil
}

// Load reads one saved run back: its metadata and the checkpoint
// trajectory in the same shape Save received.
func (s *Store) Load(runID string) (RunMetadata, []float64, [][]float64, [][]float64, error) {
	var meta RunMetadata
	runDir := filepath.Join(s.baseDir, runID)
	data, err := os.ReadFile(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return meta, nil, nil, nil, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, nil, nil, nil, err
	}

	f, err := os.Open(filepath.Join(runDir, "solution.csv"))
	if err != nil {
		return meta, nil, nil, nil, err
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return meta, nil, nil, nil, err
	}
	if len(records) == 0 || len(records[0])%2 == 0 {
		return meta, nil, nil, nil, fmt.Errorf("store: malformed solution header in run %s", runID)
	}
	n := (len(records[0]) - 1) / 2

	var times []float64
	var ys, yps [][]float64
	for _, rec := range records[1:] {
		if len(rec) != 1+2*n {
			return meta, nil, nil, nil, fmt.Errorf("store: malformed solution row in run %s", runID)
		}
		vals := make([]float64, 1+2*n)
		for i, field := range rec {
			vals[i], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return meta, nil, nil, nil, err
			}
		}
		times = append(times, vals[0])
		ys = append(ys, vals[1:1+n:1+n])
		yps = append(yps, vals[1+n:])
	}
	return meta, times, ys, yps, nil
}

// List returns metadata for all saved runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var runs []RunMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, e.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}
