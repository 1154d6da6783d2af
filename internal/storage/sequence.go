package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/maruel/salesdb/internal/csvdb"
)

// sequence is the id high-water mark kept next to the data file so that ids
// of deleted rows are never handed out again.
type sequence struct {
	NextID int64 `json:"next_id"`
}

func (s *RecordService) seqPath() string {
	return s.path + ".seq"
}

// readSeq returns the persisted next id, or 0 when there is none.
func (s *RecordService) readSeq() (int64, error) {
	b, err := os.ReadFile(s.seqPath())
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read id sequence: %w", err)
	}
	var seq sequence
	if err := json.Unmarshal(b, &seq); err != nil {
		return 0, fmt.Errorf("failed to decode id sequence: %w", err)
	}
	return seq.NextID, nil
}

func (s *RecordService) writeSeq(next int64) error {
	return csvdb.WriteFileAtomic(s.seqPath(), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(sequence{NextID: next})
	})
}
