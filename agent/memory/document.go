package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cast"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Document is one scope's memory file. Entries that are not records are kept
// verbatim so rewrites never lose foreign content.
type Document map[string]json.RawMessage

// Record is a single remembered fact.
type Record struct {
	ID             string `json:"-"`
	ConversationID string `json:"conversation_id"`
	SessionID      string `json:"session_id"`
	Message        string `json:"message"`
	Mood           string `json:"mood"`
	Theme          string `json:"theme"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}

func ParseDocument(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode memory document: %v", contractx.ErrStorage, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

func (d Document) Marshal() ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.MarshalIndent(d, "", "  ")
}

// Put stores r under id, replacing any previous entry with that id.
func (d Document) Put(id string, r Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal memory record: %w", err)
	}
	d[id] = raw
	return nil
}

// Records returns every record-shaped entry: an object carrying a message field.
// The result is sorted newest first.
func (d Document) Records() []Record {
	records := make([]Record, 0, len(d))
	for id, raw := range d {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			continue
		}
		msg, ok := fields["message"]
		if !ok {
			continue
		}
		records = append(records, Record{
			ID:             id,
			ConversationID: cast.ToString(fields["conversation_id"]),
			SessionID:      cast.ToString(fields["session_id"]),
			Message:        cast.ToString(msg),
			Mood:           cast.ToString(fields["mood"]),
			Theme:          cast.ToString(fields["theme"]),
			Date:           cast.ToString(fields["date"]),
			Time:           cast.ToString(fields["time"]),
		})
	}
	SortNewestFirst(records)
	return records
}

// SortNewestFirst orders by (date, time) descending; ties fall back to id.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return a.ID < b.ID
	})
}
