// Package reading holds one upload cycle's measurements. Every field may be
// missing; the zero value of each field means "not measured".
package reading

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/google/go-querystring/query"
)

// Int is an integer measurement that may be absent.
type Int struct {
	value int
	ok    bool
}

// IntOf returns a present Int.
func IntOf(v int) Int {
	return Int{value: v, ok: true}
}

func (i Int) Get() (int, bool) {
	return i.value, i.ok
}

func (i Int) Valid() bool {
	return i.ok
}

// EncodeValues adds the value under key when present.
func (i Int) EncodeValues(key string, v *url.Values) error {
	if i.ok {
		v.Set(key, strconv.Itoa(i.value))
	}
	return nil
}

func (i Int) MarshalJSON() ([]byte, error) {
	if !i.ok {
		return []byte("null"), nil
	}
	return json.Marshal(i.value)
}

func (i Int) String() string {
	if !i.ok {
		return "-"
	}
	return strconv.Itoa(i.value)
}

// Float is a real valued measurement that may be absent. It is encoded with two
// decimals.
type Float struct {
	value float64
	ok    bool
}

// FloatOf returns a present Float.
func FloatOf(v float64) Float {
	return Float{value: v, ok: true}
}

func (f Float) Get() (float64, bool) {
	return f.value, f.ok
}

func (f Float) Valid() bool {
	return f.ok
}

func (f Float) EncodeValues(key string, v *url.Values) error {
	if f.ok {
		v.Set(key, f.String())
	}
	return nil
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

func (f Float) String() string {
	if !f.ok {
		return "-"
	}
	return strconv.FormatFloat(f.value, 'f', 2, 64)
}

// Set is the reading set sent to the collector once per post cycle.
type Set struct {
	Volume      Int   `url:"volume" json:"volume"`
	CO2         Int   `url:"co2" json:"co2"`
	Light       Int   `url:"light" json:"light"`
	Temperature Float `url:"temperature" json:"temperature"`
	Humidity    Float `url:"humidity" json:"humidity"`
}

// Values returns the present fields keyed by their form names.
func (s Set) Values() (url.Values, error) {
	return query.Values(s)
}

// Empty reports whether no field is present.
func (s Set) Empty() bool {
	return !(s.Volume.ok || s.CO2.ok || s.Light.ok || s.Temperature.ok || s.Humidity.ok)
}
