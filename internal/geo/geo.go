package geo

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/denizerdem/turkiye-weather-service/internal/models"
)

//go:embed provinces.json
var provincesJSON []byte

// Directory is the static province lookup built from the embedded dataset.
// It is immutable after construction and safe for concurrent use.
type Directory struct {
	provinces []models.Province
	byCode    map[string]models.Province
}

// New parses the embedded province dataset.
func New() (*Directory, error) {
	var file struct {
		Provinces []models.Province `json:"provinces"`
	}
	if err := json.Unmarshal(provincesJSON, &file); err != nil {
		return nil, fmt.Errorf("parse province dataset: %w", err)
	}
	if len(file.Provinces) == 0 {
		return nil, fmt.Errorf("province dataset is empty")
	}
	byCode := make(map[string]models.Province, len(file.Provinces))
	for _, p := range file.Provinces {
		byCode[p.PlateCode] = p
	}
	return &Directory{provinces: file.Provinces, byCode: byCode}, nil
}

// Provinces returns every province in plate-code order.
func (d *Directory) Provinces() []models.Province {
	return d.provinces
}

// ByPlateCode looks up a province by its two-character plate code.
func (d *Directory) ByPlateCode(code string) (models.Province, bool) {
	p, ok := d.byCode[code]
	return p, ok
}
