// Package sourcedata читает исходные списки суши из файлов.
package sourcedata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/annel0/hexvoxel/internal/landmass"
)

// Format - формат исходного файла
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("sourcedata: unknown format")

// document - обёртка {"landmasses": [...]}; голый массив тоже допускается
type document struct {
	Landmasses []landmass.RawLandmass `json:"landmasses" yaml:"landmasses"`
}

// FormatOf определяет формат по расширению файла
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Load читает файл с исходными данными
func Load(path string) ([]landmass.RawLandmass, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sourcedata: %w", err)
	}
	defer f.Close()

	raw, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("sourcedata %s: %w", path, err)
	}
	return raw, nil
}

// Decode читает записи из потока. Числа в JSON сохраняются как json.Number,
// чтобы упакованные id не теряли точность.
func Decode(r io.Reader, format Format) ([]landmass.RawLandmass, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch format {
	case FormatJSON:
		return decodeJSON(trimmed)
	case FormatYAML:
		return decodeYAML(trimmed)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func decodeJSON(data []byte) ([]landmass.RawLandmass, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if data[0] == '[' {
		var list []landmass.RawLandmass
		if err := dec.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Landmasses, nil
}

func decodeYAML(data []byte) ([]landmass.RawLandmass, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	if node.Content[0].Kind == yaml.SequenceNode {
		var list []landmass.RawLandmass
		if err := node.Content[0].Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var doc document
	if err := node.Content[0].Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Landmasses, nil
}
