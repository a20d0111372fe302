package mission

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sells-group/flightzone/internal/geo"
)

// ErrInvalidBlob is returned when a stored blob does not match the schema.
var ErrInvalidBlob = eris.New("mission: invalid blob")

const blobSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["route", "zoneSettings"],
  "properties": {
    "route": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["lat", "lng"],
        "properties": {
          "lat": {"type": "number", "minimum": -90, "maximum": 90},
          "lng": {"type": "number", "minimum": -180, "maximum": 180}
        }
      }
    },
    "zoneSettings": {
      "type": "object",
      "properties": {
        "flight_geography_m": {"type": "number", "minimum": 0},
        "contingency_m": {"type": "number", "minimum": 0},
        "ground_risk_m": {"type": "number", "minimum": 0},
        "mode": {"type": "string", "format": "buffer_mode"}
      }
    }
  }
}`

// bufferModeFormatChecker accepts every name geo.ParseBufferMode knows.
type bufferModeFormatChecker struct{}

// IsFormat implements gojsonschema.FormatChecker.
func (bufferModeFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok {
		return false
	}
	_, err := geo.ParseBufferMode(s)
	return err == nil
}

var schemaLoader = func() gojsonschema.JSONLoader {
	gojsonschema.FormatCheckers.Add("buffer_mode", bufferModeFormatChecker{})
	return gojsonschema.NewStringLoader(blobSchema)
}()

// ValidateBlob validates raw blob JSON against the schema.
func ValidateBlob(data []byte) error {
	if !json.Valid(data) {
		return eris.Wrap(ErrInvalidBlob, "mission: blob is not JSON")
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return eris.Wrap(err, "mission: validate blob")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return eris.Wrapf(ErrInvalidBlob, "mission: %s", strings.Join(msgs, "; "))
	}
	return nil
}
