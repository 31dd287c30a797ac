// Package jsonutil prints RPC replies for humans.
package jsonutil

import (
	"bytes"
	"sort"

	"github.com/fatih/structs"
	"github.com/hokaccha/go-prettyjson"
)

var formatter *prettyjson.Formatter

func init() {
	formatter = prettyjson.NewFormatter()
	formatter.Indent = 0
	formatter.Newline = ""
}

// MarshalCompactPretty formats the struct as one "Name: value" line per field, sorted by name,
// with colored JSON values. Nested structs are flattened into "Outer.Inner" names.
func MarshalCompactPretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	err := writeFields(&buf, "", structs.Map(v))
	return buf.Bytes(), err
}

func writeFields(buf *bytes.Buffer, prefix string, m map[string]any) error {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		val := m[name]
		if nested, ok := val.(map[string]any); ok {
			if err := writeFields(buf, prefix+name+".", nested); err != nil {
				return err
			}
			continue
		}
		b, err := formatter.Marshal(val)
		if err != nil {
			return err
		}
		buf.WriteString(prefix)
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.Write(b)
		buf.WriteRune('\n')
	}
	return nil
}
