package pages

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Scale is a numeric survey answer. It decodes from a JSON number, a numeric
// string, an empty string or null; anything absent or empty becomes 0.
type Scale int

// UnmarshalJSON implements json.Unmarshaler
func (s *Scale) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}

	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*s = 0
			return nil
		}
		return s.setFromString(str)
	}

	return s.setFromString(string(data))
}

func (s *Scale) setFromString(str string) error {
	f, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("scale value %q is not a number", str)
	}
	f = math.Round(f)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return fmt.Errorf("scale value %q is out of range", str)
	}
	*s = Scale(f)
	return nil
}

// Int returns the answer as an int
func (s Scale) Int() int {
	return int(s)
}
