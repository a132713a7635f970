package config

import (
	"errors"
	"net/http"
	"strings"
)

// multiFlag collects header names from a repeated flag. A list in the
// config file replaces the collected values.
type multiFlag []string

func (f *multiFlag) String() string {
	return strings.Join(*f, " ")
}

func (f *multiFlag) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("empty header name")
	}

	*f = append(*f, http.CanonicalHeaderKey(value))
	return nil
}

func (f *multiFlag) UnmarshalYAML(unmarshal func(any) error) error {
	var values []string
	if err := unmarshal(&values); err != nil {
		return err
	}

	*f = values
	return nil
}
