package lightingStructs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DeviceId accepts both numeric and string ids from the API.
type DeviceId string

func (d *DeviceId) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = DeviceId(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("device_id: %w", err)
	}
	*d = DeviceId(n.String())
	return nil
}

// Register is one lamp state observation as returned by /registers.
type Register struct {
	DeviceId  DeviceId `json:"device_id,omitempty"`
	Timestamp string   `json:"timestamp"`
	State     bool     `json:"state"`
}

type LampOnTime struct {
	// seconds, absent when the API has no data for the window
	TotalOnTimeLast24Hours *float64 `json:"totalOnTimeLast24Hours,omitempty"`
}

type MonthlyConsumption struct {
	MonthlyAverageConsumption float64 `json:"monthlyAverageConsumption"`
	MonthlyCost               float64 `json:"monthlyCost"`
}

// Record is a loosely typed row from the sensor and alert endpoints.
type Record map[string]any

func (r Record) DeviceId() string {
	switch v := r["device_id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Number returns the numeric value stored under key.
func (r Record) Number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
