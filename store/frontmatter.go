package store

import (
	"bytes"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// yamlFrontMatter only recognises "---" blocks. TOML and JSON front matter
// are never written by folio or by the legacy layout.
var yamlFrontMatter = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

const emptyFrontMatter = "---\n---\n"

// legacyMeta is the front matter written into post files by the previous
// version of the site. The index now owns this metadata; it is only read
// during import.
type legacyMeta struct {
	Title     string   `yaml:"title"`
	Excerpt   string   `yaml:"excerpt"`
	Tags      []string `yaml:"tags"`
	Published *bool    `yaml:"published"`
	Date      string   `yaml:"date"`
}

func hasFrontMatter(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte("---\n")) || bytes.HasPrefix(raw, []byte("---\r\n"))
}

// splitFrontMatter separates an optional leading front matter block from
// the markdown body.
func splitFrontMatter(raw []byte) (legacyMeta, string, error) {
	var meta legacyMeta
	if !hasFrontMatter(raw) {
		return meta, string(raw), nil
	}
	body, err := frontmatter.Parse(bytes.NewReader(raw), &meta, yamlFrontMatter)
	if err != nil {
		return meta, "", err
	}
	return meta, string(body), nil
}

// encodeBody returns the bytes written to a content file. A body that would
// itself be mistaken for front matter is put behind an empty block.
func encodeBody(body string) []byte {
	if strings.HasPrefix(body, "---") {
		return []byte(emptyFrontMatter + body)
	}
	return []byte(body)
}
