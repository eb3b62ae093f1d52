package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// JSON flattens a JSON document into "path: value" lines with keys sorted.
func JSON(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}

	var b strings.Builder
	flatten(&b, "", v)
	return b.String(), nil
}

func flatten(b *strings.Builder, path string, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(b, join(path, k), t[k])
		}
	case []any:
		for i, item := range t {
			flatten(b, join(path, strconv.Itoa(i)), item)
		}
	case nil:
	default:
		value := strings.TrimSpace(fmt.Sprint(t))
		if value == "" {
			return
		}
		if path != "" {
			b.WriteString(path)
			b.WriteString(": ")
		}
		b.WriteString(value)
		b.WriteByte('\n')
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
