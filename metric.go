package journal

import (
	"encoding/json"
)

// Metric is one entry of the metric vector.
type Metric struct {
	Key     string
	Unit    Unit
	Value   Value
	Display string
}

// MarshalJSON implements the json.Marshaler interface for Metric.
// A metric with no data has a null value.
func (m Metric) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	if v, ok := m.Value.Float(); ok {
		w.Append("value", v)
	} else {
		w.Append("value", nil)
	}
	w.Append("unit", m.Unit)
	w.Append("display", m.Display)
	return w.MarshalJSON()
}

// Metrics is the metric vector, keyed by stable identifiers, in computation order.
type Metrics struct {
	currency string
	list     []Metric
	index    map[string]int
}

func newMetrics(currency string) *Metrics {
	return &Metrics{currency: currency, index: make(map[string]int)}
}

func (m *Metrics) add(key string, unit Unit, v Value) {
	m.set(Metric{Key: key, Unit: unit, Value: v, Display: v.Format(unit)})
}

// addMoney adds a currency metric displayed at the currency precision.
func (m *Metrics) addMoney(key string, v Money) {
	m.set(Metric{Key: key, Unit: Currency, Value: Of(v.InexactFloat64()), Display: v.String()})
}

func (m *Metrics) addOptionalMoney(key string, v *Money) {
	if v == nil {
		m.add(key, Currency, NoData())
		return
	}
	m.addMoney(key, *v)
}

func (m *Metrics) set(metric Metric) {
	if i, ok := m.index[metric.Key]; ok {
		m.list[i] = metric
		return
	}
	m.index[metric.Key] = len(m.list)
	m.list = append(m.list, metric)
}

// Get returns the metric named 'key'.
func (m *Metrics) Get(key string) (Metric, bool) {
	i, ok := m.index[key]
	if !ok {
		return Metric{Key: key, Value: NoData(), Display: NoDataString}, false
	}
	return m.list[i], true
}

// Value returns the value of the metric named 'key', with no data when unknown.
func (m *Metrics) Value(key string) Value {
	metric, _ := m.Get(key)
	return metric.Value
}

// Display returns the formatted value of 'key'.
func (m *Metrics) Display(key string) string {
	metric, _ := m.Get(key)
	return metric.Display
}

// All returns every metric in order.
func (m *Metrics) All() []Metric { return m.list }

// Currency returns the currency of money metrics.
func (m *Metrics) Currency() string { return m.currency }

// MarshalJSON implements the json.Marshaler interface for Metrics, as an object keyed
// by metric identifiers.
func (m *Metrics) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	for _, metric := range m.list {
		w.Append(metric.Key, metric)
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Metrics.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw map[string]struct {
		Value   *float64 `json:"value"`
		Unit    Unit     `json:"unit"`
		Display string   `json:"display"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	keys, err := objectKeys(data)
	if err != nil {
		return err
	}
	*m = *newMetrics("")
	for _, k := range keys {
		e := raw[k]
		v := NoData()
		if e.Value != nil {
			v = Of(*e.Value)
		}
		m.set(Metric{Key: k, Unit: e.Unit, Value: v, Display: e.Display})
	}
	return nil
}
