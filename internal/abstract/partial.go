package abstract

import "encoding/json"

// PartialSchema is the JSON Schema a per-chunk extraction reply must satisfy:
// every abstract field optional and nullable, trustees as a string array.
var PartialSchema = buildPartialSchema()

func buildPartialSchema() json.RawMessage {
	props := make(map[string]any, len(FieldNames))
	for _, f := range FieldNames {
		if f == "servicelink_trustees" {
			props[f] = map[string]any{
				"type":  []string{"array", "null"},
				"items": map[string]any{"type": "string"},
			}
			continue
		}
		props[f] = map[string]any{"type": []string{"string", "null"}}
	}
	data, err := json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
	})
	if err != nil {
		panic(err)
	}
	return data
}
