package landmass

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/annel0/hexvoxel/internal/hexgrid"
)

var (
	// ErrMalformedPosition - позиция не является целым числом в диапазоне uint32 или парой {x, z}.
	ErrMalformedPosition = errors.New("landmass: malformed position")
	ErrMissingID         = errors.New("landmass: missing id")
	ErrDuplicateID       = errors.New("landmass: duplicate id")
	ErrEmptyLandmass     = errors.New("landmass: no positions")
)

// RawLandmass - запись исходных данных. Поля нетипизированы: исходники
// приходят из JSON или YAML, id бывает строкой или числом, а позиции -
// упакованными числами, числовыми строками или объектами {x, z}.
type RawLandmass struct {
	ID        interface{}   `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	Status    string        `json:"status,omitempty" yaml:"status,omitempty"`
	Positions []interface{} `json:"positions" yaml:"positions"`
}

// SourceError указывает на испорченную запись исходных данных.
// Index - номер позиции в записи или -1, если ошибка относится к записи целиком.
type SourceError struct {
	LandmassID string
	Index      int
	Err        error
}

func (e *SourceError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("landmass %q: %v", e.LandmassID, e.Err)
	}
	return fmt.Sprintf("landmass %q position #%d: %v", e.LandmassID, e.Index, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NormalizeID приводит id к строке
func NormalizeID(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", ErrMissingID
	case string:
		if strings.TrimSpace(v) == "" {
			return "", ErrMissingID
		}
		return v, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
		f, err := v.Float64()
		if err != nil {
			return "", fmt.Errorf("%w: id %q is not a number", ErrMissingID, v.String())
		}
		return NormalizeID(f)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w: non-integer id %v", ErrMissingID, v)
		}
		return strconv.FormatInt(int64(v), 10), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	}
	return "", fmt.Errorf("%w: unsupported id type %T", ErrMissingID, raw)
}

// CoercePosition приводит исходную позицию к упакованному идентификатору тайла.
func CoercePosition(raw interface{}) (hexgrid.TileID, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return coerceCoord(v)
	case hexgrid.Coord:
		return v.ID()
	}

	n, err := coerceInt(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d outside uint32", ErrMalformedPosition, n)
	}
	return hexgrid.TileID(n), nil
}

func coerceCoord(m map[string]interface{}) (hexgrid.TileID, error) {
	rawX, okX := m["x"]
	rawZ, okZ := m["z"]
	if !okX || !okZ {
		return 0, fmt.Errorf("%w: coordinate object needs x and z", ErrMalformedPosition)
	}
	x, err := coerceInt(rawX)
	if err != nil {
		return 0, err
	}
	z, err := coerceInt(rawZ)
	if err != nil {
		return 0, err
	}
	if x < math.MinInt32 || x > math.MaxInt32 || z < math.MinInt32 || z > math.MaxInt32 {
		return 0, fmt.Errorf("%w: coordinate (%d,%d) too large", ErrMalformedPosition, x, z)
	}
	id, err := hexgrid.Encode(int(x), int(z))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedPosition, err)
	}
	return id, nil
}

func coerceInt(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d too large", ErrMalformedPosition, v)
		}
		return int64(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrMalformedPosition, v)
		}
		return int64(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedPosition, v.String())
		}
		return coerceInt(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not numeric", ErrMalformedPosition, v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: unsupported type %T", ErrMalformedPosition, raw)
}
