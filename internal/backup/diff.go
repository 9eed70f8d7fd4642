package backup

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffPayloads renders two decrypted payloads as stable text and returns
// a line-based diff, for inspecting what an import would add before
// running it. Record ids are included so renames show up.
func DiffPayloads(a, b *Payload) (string, error) {
	textA, err := renderPayload(a)
	if err != nil {
		return "", err
	}
	textB, err := renderPayload(b)
	if err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	charsA, charsB, lines := dmp.DiffLinesToChars(textA, textB)
	diffs := dmp.DiffMain(charsA, charsB, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// renderPayload produces deterministic one-record-per-line text: sorted
// collections, records sorted by id, keys sorted by encoding/json.
func renderPayload(p *Payload) (string, error) {
	collections := make([]string, 0, len(p.Collections))
	for name := range p.Collections {
		collections = append(collections, name)
	}
	sort.Strings(collections)

	var sb strings.Builder
	for _, collection := range collections {
		fmt.Fprintf(&sb, "[%s]\n", collection)

		sorted := make([]string, 0, len(p.Collections[collection]))
		for _, rec := range p.Collections[collection] {
			line, err := json.Marshal(rec)
			if err != nil {
				return "", fmt.Errorf("failed to render record: %w", err)
			}
			sorted = append(sorted, string(line))
		}
		sort.Strings(sorted)
		for _, line := range sorted {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}
