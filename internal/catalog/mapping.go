package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// SKUInfo is the display record for one SKU.
type SKUInfo struct {
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
	Volume   string `json:"volume,omitempty"`
}

// UnmarshalJSON accepts either a record or a bare display-name string.
func (s *SKUInfo) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = SKUInfo{Name: name}
		return nil
	}
	type plain SKUInfo
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = SKUInfo(p)
	return nil
}

// Mapping maps SKU ids to display records.
type Mapping map[string]SKUInfo

// DisplayName returns the friendly name for sku, or sku itself when the
// mapping has no name for it.
func (m Mapping) DisplayName(sku string) string {
	if info, ok := m[sku]; ok && info.Name != "" {
		return info.Name
	}
	return sku
}

// LoadMapping reads a JSON object of sku id -> record or name.
func LoadMapping(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read sku mapping: %w", err)
	}
	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot parse sku mapping: %w", err)
	}
	log.Info().Int("skus", len(m)).Str("path", path).Msg("loaded sku mapping")
	return m, nil
}
