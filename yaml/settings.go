// Package yaml loads crawl settings from YAML documents.
package yaml

import (
	"errors"
	"io"
	"os"

	"github.com/fwojciec/crawlfront"
	"gopkg.in/yaml.v3"
)

// LoadSettings reads the settings file at path. Options it does not set
// keep their defaults.
func LoadSettings(path string) (crawlfront.Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return crawlfront.Settings{}, crawlfront.Errorf(crawlfront.ENOTFOUND, "settings file %s not found", path)
		}
		return crawlfront.Settings{}, err
	}
	defer f.Close()
	return ParseSettings(f)
}

// ParseSettings decodes settings from r on top of the defaults and
// validates the result. Unrecognized options are kept in Settings.Extra.
// An empty document yields the defaults.
func ParseSettings(r io.Reader) (crawlfront.Settings, error) {
	s := crawlfront.DefaultSettings()
	if err := yaml.NewDecoder(r).Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return crawlfront.Settings{}, crawlfront.Errorf(crawlfront.EINVALID, "invalid settings: %v", err)
	}
	if err := s.Validate(); err != nil {
		return crawlfront.Settings{}, err
	}
	return s, nil
}

// WriteSettings encodes s as a YAML document.
func WriteSettings(w io.Writer, s crawlfront.Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
