package tamarom

import (
	"bufio"
	"os"
	"strings"

	"github.com/bodgit/tamarom/text"
)

// LoadReplaceMap reads a tag-to-glyph replacement table from a plain text
// file: one rule per line, source and replacement separated by the first
// comma. Blank lines and lines starting with # are skipped. The table
// maps raw <XXXX> tags to readable text; its reverse maps text back for
// encoding.
func LoadReplaceMap(path string) (*text.ReplaceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rules []text.Rule
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimPrefix(s.Text(), "\uFEFF")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		from, to, found := strings.Cut(line, ",")
		if !found || from == "" {
			continue
		}
		rules = append(rules, text.Rule{From: from, To: to})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	return text.NewReplaceTable(rules), nil
}
