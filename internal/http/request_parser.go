package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"runway/internal/core"
	"runway/internal/rules"
)

// maxBodyBytes bounds request bodies; rule payloads are small.
const maxBodyBytes = 1 << 20

// decodeJSON decodes a request body into dst. An empty body leaves dst at its
// zero value, so endpoints with all-optional fields accept bare requests.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter.
func parseDateQuery(r *http.Request, name string) (core.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("parameter %q: %w", name, err)
	}
	return d, nil
}

// parseMoneyQuery reads an optional decimal-amount query parameter.
func parseMoneyQuery(r *http.Request, name string) (*core.Money, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	cents, err := core.ParseDecimalToCents(v)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}
	m := core.CentsOf(cents)
	return &m, nil
}

// forecastRequestFromQuery builds a forecast request from query parameters,
// used by the read-only GET endpoints.
func forecastRequestFromQuery(r *http.Request) (rules.ForecastRequest, error) {
	var req rules.ForecastRequest
	var err error
	if req.StartDate, err = parseDateQuery(r, "start_date"); err != nil {
		return rules.ForecastRequest{}, err
	}
	if req.EndDate, err = parseDateQuery(r, "end_date"); err != nil {
		return rules.ForecastRequest{}, err
	}
	if req.CurrentBalance, err = parseMoneyQuery(r, "current_balance"); err != nil {
		return rules.ForecastRequest{}, err
	}
	if req.SetAside, err = parseMoneyQuery(r, "set_aside"); err != nil {
		return rules.ForecastRequest{}, err
	}
	return req, nil
}
