package branding

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Loader handles loading and parsing of the branding file
type Loader struct {
	filePath string
	lastSum  []byte // digest of the last file that parsed
}

// NewLoader creates a new branding loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads and parses the branding file
func (l *Loader) Load() (File, error) {
	file, _, err := l.load(true)
	return file, err
}

// LoadIfChanged is Load, but reports changed=false without parsing when the
// raw file is identical to the last one that loaded successfully.
func (l *Loader) LoadIfChanged() (file File, changed bool, err error) {
	return l.load(false)
}

func (l *Loader) load(force bool) (File, bool, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, false, fmt.Errorf("failed to read branding file: %w", err)
	}

	sum := sha256.Sum256(data)
	if !force && bytes.Equal(sum[:], l.lastSum) {
		return File{}, false, nil
	}

	// Custom emoji ids often live in the environment ({{KB_EMOJI}})
	data = expandTemplateVariables(data)

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, false, fmt.Errorf("failed to parse branding yaml: %w", err)
	}

	l.lastSum = sum[:]
	return file, true, nil
}

// expandTemplateVariables replaces {{NAME}} with the environment value of
// NAME, quoted so yaml keeps it a string. Unset variables become "".
// Example: emoji: {{KB_EMOJI}} -> emoji: "<:kb:123>"
func expandTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAllFunc(data, func(m []byte) []byte {
		name := templateVar.FindSubmatch(m)[1]
		v := os.Getenv(string(name))
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		return []byte(`"` + v + `"`)
	})
}
