package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDirectory reads every markdown file in dir into documents. The first
// level-one heading becomes the title; the filename is the source.
func LoadDirectory(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read knowledge directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read knowledge file %s: %w", entry.Name(), err)
		}

		text := strings.TrimSpace(string(content))
		if text == "" {
			continue
		}

		title, body := splitTitle(text)
		if title == "" {
			title = strings.TrimSuffix(entry.Name(), ".md")
		}

		docs = append(docs, Document{
			ID:     strings.TrimSuffix(entry.Name(), ".md"),
			Title:  title,
			Text:   body,
			Source: entry.Name(),
		})
	}

	return docs, nil
}

// splitTitle extracts a leading "# " heading, returning it and the remaining
// body.
func splitTitle(text string) (string, string) {
	if !strings.HasPrefix(text, "# ") {
		return "", text
	}

	newline := strings.IndexByte(text, '\n')
	if newline < 0 {
		return strings.TrimSpace(text[2:]), ""
	}
	return strings.TrimSpace(text[2:newline]), strings.TrimSpace(text[newline+1:])
}
