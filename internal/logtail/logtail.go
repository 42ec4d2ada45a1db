package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Entry is one log line. Lines that are not zerolog JSON keep their text in
// Message and have an empty Level.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]string
	Raw     string
}

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines reads the whole file.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// ReadEntries reads the tail of path and parses every line.
func ReadEntries(path string, maxLines int) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, Parse(line))
	}
	return entries, nil
}

// Parse decodes one zerolog JSON line.
func Parse(line string) Entry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{Message: line, Raw: line}
	}

	e := Entry{Raw: line, Fields: make(map[string]string)}
	for key, value := range raw {
		switch key {
		case "time":
			if s, ok := value.(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					e.Time = ts
					continue
				}
			}
			e.Fields[key] = stringify(value)
		case "level":
			e.Level = stringify(value)
		case "message":
			e.Message = stringify(value)
		default:
			e.Fields[key] = stringify(value)
		}
	}
	return e
}

// FieldKeys returns the entry's field names in sorted order.
func (e Entry) FieldKeys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
