package http

import (
	"net/url"
	"time"
)

const dateLayout = "2006-01-02"

func parseDateParam(value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errInvalidDateParam
	}
	return parsed, nil
}

// optionalDateQuery parses a date query parameter, returning nil when absent.
func optionalDateQuery(query url.Values, name string) (*time.Time, error) {
	value := query.Get(name)
	if value == "" {
		return nil, nil
	}
	parsed, err := parseDateParam(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
