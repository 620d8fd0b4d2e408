package uplink

import (
	"net/url"
	"strings"

	"github.com/gr-butler/airmon/reading"
)

// fieldOrder is the order the collector expects the form fields in.
var fieldOrder = []string{"volume", "co2", "light", "temperature", "humidity"}

// EncodeBody returns the form encoded body for set. Absent fields are left out.
func EncodeBody(set reading.Set) (string, error) {
	vals, err := set.Values()
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(fieldOrder))
	for _, key := range fieldOrder {
		if _, ok := vals[key]; !ok {
			continue
		}
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(vals.Get(key)))
	}
	return strings.Join(parts, "&"), nil
}
