package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// SensorSchemaFile is the separate JSON document describing a list of
// sensors, each naming its packed-row columns and their SQL types.
// Column order here is the declaration order used to compute each
// non-auto column's offset within the incoming packed row (see package
// schema).
type SensorSchemaFile struct {
	Sensors []SensorSchemaEntry `json:"sensors"`
}

// SensorSchemaEntry names one sensor/table and its packed-row layout.
type SensorSchemaEntry struct {
	Name string `json:"name"`
	// Data maps each column name to its SQL type. Map decoding loses the
	// key order; OrderedColumns below carries the declaration order.
	Data map[string]string `json:"data"`
	// UnitID routes wire-protocol frames from this sensor's modbus unit
	// to its own pipe and table.
	UnitID uint16 `json:"unit_id"`
	// OrderedColumns preserves the order columns appeared in the source
	// JSON object, which encoding/json's map decoding does not. It is
	// populated by LoadSensorSchemaFile from the raw token stream.
	OrderedColumns []string `json:"-"`
}

// LoadSensorSchemaFile reads and parses the sensor schema file at path,
// recovering column declaration order (encoding/json's map[string]string
// decoding loses it, but the packed-row offset computation depends on
// it).
func LoadSensorSchemaFile(path string) (*SensorSchemaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw struct {
		Sensors []struct {
			Name   string            `json:"name"`
			Data   map[string]string `json:"data"`
			UnitID uint16            `json:"unit_id"`
		} `json:"sensors"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	order, err := columnOrder(data)
	if err != nil {
		return nil, fmt.Errorf("config: recover column order in %s: %w", path, err)
	}

	out := &SensorSchemaFile{}
	for i, s := range raw.Sensors {
		entry := SensorSchemaEntry{Name: s.Name, Data: s.Data, UnitID: s.UnitID}
		if i < len(order) {
			entry.OrderedColumns = order[i]
		}
		out.Sensors = append(out.Sensors, entry)
	}
	return out, nil
}

// columnOrder walks the raw JSON token stream to recover, per sensor in
// declaration order, the order its "data" object's keys appeared in.
func columnOrder(data []byte) ([][]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var root map[string]json.RawMessage
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}

	sensorsRaw, ok := root["sensors"]
	if !ok {
		return nil, nil
	}

	var sensors []json.RawMessage
	if err := json.Unmarshal(sensorsRaw, &sensors); err != nil {
		return nil, err
	}

	out := make([][]string, len(sensors))
	for i, s := range sensors {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(s, &fields); err != nil {
			return nil, err
		}
		dataRaw, ok := fields["data"]
		if !ok {
			continue
		}
		keys, err := objectKeyOrder(dataRaw)
		if err != nil {
			return nil, err
		}
		out[i] = keys
	}
	return out, nil
}

// objectKeyOrder returns the keys of a JSON object in the order they
// were written, by scanning tokens rather than decoding into a map.
func objectKeyOrder(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		keys = append(keys, key)

		// Skip the value.
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
