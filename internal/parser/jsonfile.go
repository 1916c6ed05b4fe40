package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ranscope/trace-engine/internal/models"
	"github.com/ranscope/trace-engine/internal/utils"
)

// rawEvent is the mobility controller's event dump schema.
type rawEvent struct {
	Timestamp json.RawMessage            `json:"timestamp"`
	EventType string                     `json:"event_type"`
	Details   map[string]json.RawMessage `json:"details"`
}

// rawRrc is one already-decoded control-plane capture record.
type rawRrc struct {
	Timestamp   json.RawMessage `json:"timestamp"`
	MessageType string          `json:"message_type"`
	Direction   string          `json:"direction"`
	Message     string          `json:"message"`
}

// parseMobilityJSON accepts either a JSON array (what the controller writes)
// or one JSON object per line; both stream through a json.Decoder.
func (p *Parser) parseMobilityJSON(src Source, r io.Reader, stats Stats) ([]models.LogRecord, Stats) {
	var records []models.LogRecord
	forEachValue(r, &stats, func(raw json.RawMessage) {
		var ev rawEvent
		if err := json.Unmarshal(raw, &ev); err != nil || ev.EventType == "" {
			stats.Skipped++
			return
		}
		ts, err := decodeTimestamp(ev.Timestamp)
		if err != nil {
			stats.Skipped++
			return
		}
		fields := map[string]string{"event_type": ev.EventType}
		for k, v := range ev.Details {
			fields[k] = rawToString(v)
		}
		entity := src.EntityID
		if id, ok := fields["ue_id"]; ok {
			entity = entityName("ue", id)
		} else if id, ok := fields["gnb_id"]; ok {
			entity = entityName("gnb", id)
		}
		if entity == "" {
			stats.Skipped++
			return
		}
		records = append(records, models.LogRecord{
			SourceID:  src.ID,
			EntityID:  entity,
			Timestamp: ts,
			Kind:      models.KindMobilityEvent,
			Fields:    fields,
		})
		stats.Records++
	})
	return records, stats
}

// parseRrcJSON consumes decoded capture records; the capture-decoding step
// itself is an external collaborator.
func (p *Parser) parseRrcJSON(src Source, r io.Reader, stats Stats) ([]models.LogRecord, Stats) {
	var records []models.LogRecord
	forEachValue(r, &stats, func(raw json.RawMessage) {
		var msg rawRrc
		if err := json.Unmarshal(raw, &msg); err != nil {
			stats.Skipped++
			return
		}
		ts, err := decodeTimestamp(msg.Timestamp)
		if err != nil {
			stats.Skipped++
			return
		}
		fields := map[string]string{"layer": string(models.LayerCapture)}
		switch {
		case msg.MessageType != "":
			fields["procedure"] = msg.MessageType
		case msg.Message != "":
			fields["procedure"] = msg.Message
		default:
			stats.Skipped++
			return
		}
		if msg.Direction != "" {
			fields["direction"] = msg.Direction
		}
		records = append(records, models.LogRecord{
			SourceID:  src.ID,
			EntityID:  src.EntityID,
			Timestamp: ts,
			Kind:      models.KindRrcMessage,
			Fields:    fields,
		})
		stats.Records++
	})
	return records, stats
}

// forEachValue streams top-level JSON values from r, unwrapping a single
// enclosing array when present. Line mode recovers per line: a corrupt line
// is counted and skipped without losing the events after it. Array input is
// one document, so a syntax error there ends the stream.
func forEachValue(r io.Reader, stats *Stats, fn func(json.RawMessage)) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return
	}

	if first == '[' {
		dec := json.NewDecoder(br)
		if _, err := dec.Token(); err != nil {
			stats.Skipped++
			return
		}
		for dec.More() {
			stats.Lines++
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				stats.Skipped++
				return
			}
			fn(raw)
		}
		return
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Lines++
		if !json.Valid(line) {
			stats.Skipped++
			continue
		}
		fn(json.RawMessage(line))
	}
	if err := scanner.Err(); err != nil {
		stats.Skipped++
	}
}

// peekNonSpace returns the first non-whitespace byte without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := br.Discard(1); err != nil {
				return 0, err
			}
		default:
			return b[0], nil
		}
	}
}

// decodeTimestamp accepts a quoted timestamp in any supported layout, or a
// bare number of fractional epoch seconds.
func decodeTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return utils.ParseTimestamp(s)
	}
	var secs float64
	if err := json.Unmarshal(raw, &secs); err == nil && secs > 0 {
		return utils.EpochSeconds(secs), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %s", string(raw))
}

func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return string(raw)
}

// entityName canonicalizes numeric controller ids ("1" → "ue1"); ids that are
// already names pass through.
func entityName(prefix, id string) string {
	if id == "" {
		return ""
	}
	if _, err := strconv.Atoi(id); err == nil {
		return prefix + id
	}
	return id
}
