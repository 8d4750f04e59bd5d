package weather

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	summaryFallback  = "Weather data available"
	unknownCondition = "Unknown"
	defaultTempUnit  = "°C"
)

// jsonNode is one decoded object level of a provider payload.  Values stay
// raw until a path asks for them, so one wrong-typed field cannot spoil the
// rest of the document.
type jsonNode map[string]json.RawMessage

func (n jsonNode) raw(path ...string) (json.RawMessage, bool) {
	cur := n
	for i, key := range path {
		v, ok := cur[key]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		var next jsonNode
		if err := json.Unmarshal(v, &next); err != nil || next == nil {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func (n jsonNode) floatAt(path ...string) *float64 {
	v, ok := n.raw(path...)
	if !ok {
		return nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	return &f
}

func (n jsonNode) stringAt(path ...string) *string {
	v, ok := n.raw(path...)
	if !ok {
		return nil
	}
	var s *string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil
	}
	return s
}

func (n jsonNode) boolAt(path ...string) *bool {
	v, ok := n.raw(path...)
	if !ok {
		return nil
	}
	var b *bool
	if err := json.Unmarshal(v, &b); err != nil {
		return nil
	}
	return b
}

// ParseCurrentConditions extracts the known current-conditions fields from a
// raw provider payload.  Each field is optional and left nil when its path is
// missing or has the wrong type.  The returned record is always usable: when
// the payload is not a JSON object it carries only the raw body and a generic
// summary, and ErrParseDegraded is returned alongside it.
func ParseCurrentConditions(raw []byte, locationID int64) (WeatherData, error) {
	w := WeatherData{
		LocationID:  locationID,
		APIResponse: string(raw),
	}

	var root jsonNode
	if err := json.Unmarshal(raw, &root); err != nil || root == nil {
		w.Summary = summaryFallback
		if err == nil {
			err = errors.New("payload is not an object")
		}
		return w, fmt.Errorf("%w: %v", ErrParseDegraded, err)
	}

	w.Temperature = root.floatAt("temperature", "degrees")
	w.TemperatureUnit = root.stringAt("temperature", "unit")
	w.FeelsLikeTemperature = root.floatAt("feelsLikeTemperature", "degrees")
	w.Humidity = root.floatAt("relativeHumidity")
	w.Condition = root.stringAt("weatherCondition", "description", "text")
	w.ConditionType = root.stringAt("weatherCondition", "type")
	w.IconURI = root.stringAt("weatherCondition", "iconBaseUri")
	w.UVIndex = root.floatAt("uvIndex")
	w.WindSpeed = root.floatAt("wind", "speed", "value")
	w.WindSpeedUnit = root.stringAt("wind", "speed", "unit")
	w.WindDirection = root.floatAt("wind", "direction", "degrees")
	w.IsDaytime = root.boolAt("isDaytime")

	w.Summary = Summarize(w)
	return w, nil
}

// Summarize builds the short human-readable line stored with each record.
func Summarize(w WeatherData) string {
	if w.Temperature != nil {
		condition := unknownCondition
		if w.Condition != nil && *w.Condition != "" {
			condition = *w.Condition
		}
		unit := defaultTempUnit
		if w.TemperatureUnit != nil && *w.TemperatureUnit != "" {
			unit = *w.TemperatureUnit
		}
		return fmt.Sprintf("%s, %.1f%s", condition, *w.Temperature, unit)
	}
	if w.Condition != nil && *w.Condition != "" {
		return *w.Condition
	}
	return summaryFallback
}
