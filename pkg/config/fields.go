package config

import (
	"os"

	"sigs.k8s.io/yaml"
)

// Fields names the reserved REDCap structural columns. The record identifier
// is not named here: REDCap always exports it as the first column, whatever
// the project calls it.
type Fields struct {
	Event      string `json:"event"`
	Instrument string `json:"instrument"`
	Instance   string `json:"instance"`
}

// DefaultFields returns the column names REDCap uses in its own exports.
func DefaultFields() Fields {
	return Fields{
		Event:      "redcap_event_name",
		Instrument: "redcap_repeat_instrument",
		Instance:   "redcap_repeat_instance",
	}
}

// ReadFields loads reserved field names from a yaml file. Names left unset in
// the file keep their defaults.
func ReadFields(path string) (Fields, error) {
	f := DefaultFields()
	contents, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(contents, &f); err != nil {
		return f, err
	}
	if f.Event == "" {
		f.Event = DefaultFields().Event
	}
	if f.Instrument == "" {
		f.Instrument = DefaultFields().Instrument
	}
	if f.Instance == "" {
		f.Instance = DefaultFields().Instance
	}
	return f, nil
}
