package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"inbox-agent/pkg/gmail"
)

// readFile is swapped in tests.
var readFile = os.ReadFile

var paragraphBreak = regexp.MustCompile(`\r?\n\s*\r?\n`)

// snippetsFromFile reads knowledge snippets: a .eml file becomes one snippet of
// subject and body, any other file is split on blank lines.
func snippetsFromFile(path string) ([]string, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".eml") {
		subject, body, err := gmail.ParseRFC822(raw)
		if err != nil {
			return nil, err
		}
		snippet := strings.TrimSpace(subject + "\n\n" + strings.TrimSpace(body))
		if snippet == "" {
			return nil, nil
		}
		return []string{snippet}, nil
	}
	return splitParagraphs(string(raw)), nil
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
