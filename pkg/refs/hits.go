package refs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Hit is one recorded purpose/reference pair, the unit of the hits stream a
// tracked process writes for the runner.
type Hit struct {
	Location
	Purpose   string    `json:"purpose"`
	Reference Reference `json:"reference"`
}

// HitWriter encodes hits as JSON lines.
type HitWriter struct {
	encoder *json.Encoder
}

func NewHitWriter(w io.Writer) *HitWriter {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return &HitWriter{encoder: encoder}
}

func (w *HitWriter) Write(hit Hit) error {
	return w.encoder.Encode(hit)
}

// ReadHits replays a hits stream into reg and returns the number of lines
// read. Blank lines are skipped; a truncated final line from a killed
// process is ignored.
func ReadHits(r io.Reader, reg *Registry) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	count, lineNo := 0, 0
	var pending error
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if pending != nil {
			return count, pending
		}
		var hit Hit
		if err := json.Unmarshal(line, &hit); err != nil {
			pending = fmt.Errorf("failed to decode hit on line %d: %w", lineNo, err)
			continue
		}
		reg.Add(hit.Location, hit.Purpose, hit.Reference)
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read hits: %w", err)
	}
	return count, nil
}
