// Package store exports stored runs as JSON and extracts named series from
// their records.
package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/storage"
)

type ExportData struct {
	Run     storage.RunMetadata `json:"run"`
	Ticks   int                 `json:"ticks"`
	Records []dynamo.TickRecord `json:"records"`
}

// ExportRun loads runID from st and writes it to path, or to stdout when
// path is empty or "-".
func ExportRun(st *storage.Store, runID, path string) error {
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	recs, err := st.LoadTicks(runID)
	if err != nil {
		return err
	}

	if path == "" || path == "-" {
		return WriteJSON(os.Stdout, meta, recs)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteJSON(file, meta, recs); err != nil {
		return err
	}
	return file.Close()
}

func WriteJSON(w io.Writer, meta *storage.RunMetadata, recs []dynamo.TickRecord) error {
	data := ExportData{
		Run:     *meta,
		Ticks:   len(recs),
		Records: recs,
	}
	if data.Records == nil {
		data.Records = []dynamo.TickRecord{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
