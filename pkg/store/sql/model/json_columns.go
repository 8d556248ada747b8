package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/modelplane/modelplane/pkg/entities"
)

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}

func valueJSON(src interface{}) (driver.Value, error) {
	b, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MetricMap stores a metric-name to value mapping as a JSON text column.
type MetricMap map[string]float64

func (m MetricMap) Value() (driver.Value, error) { return valueJSON(m) }
func (m *MetricMap) Scan(src interface{}) error  { return scanJSON(src, m) }

// StringMap stores free-form key/value metadata as a JSON text column.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) { return valueJSON(m) }
func (m *StringMap) Scan(src interface{}) error  { return scanJSON(src, m) }

// FeatureDriftMap stores per-feature drift scores as a JSON text column.
type FeatureDriftMap map[string]entities.FeatureDrift

func (m FeatureDriftMap) Value() (driver.Value, error) { return valueJSON(m) }
func (m *FeatureDriftMap) Scan(src interface{}) error  { return scanJSON(src, m) }

// DeltaMap stores a per-metric comparison summary as a JSON text column.
type DeltaMap map[string]entities.MetricDelta

func (m DeltaMap) Value() (driver.Value, error) { return valueJSON(m) }
func (m *DeltaMap) Scan(src interface{}) error  { return scanJSON(src, m) }
