// Package model provides value objects for API parameter validation.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// EntityName represents a material or project name taken from a request path.
type EntityName struct {
	value string
}

// NewEntityName creates a new entity name value object.
func NewEntityName(name string) (*EntityName, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	return &EntityName{value: name}, nil
}

// String returns the name string.
func (n *EntityName) String() string {
	return n.value
}

// Rate represents a non-negative hourly rate.
type Rate struct {
	value float64
}

// NewRate creates a new rate value object.
// A nil value falls back to the configured default.
func NewRate(val *float64, defaultValue float64) (*Rate, error) {
	if val == nil {
		return &Rate{value: defaultValue}, nil
	}
	if *val < 0 {
		return nil, fmt.Errorf("rate must not be negative")
	}
	return &Rate{value: *val}, nil
}

// Float returns the rate value.
func (r *Rate) Float() float64 {
	return r.value
}

// Flag represents an optional boolean query parameter.
type Flag struct {
	value bool
}

// NewFlag parses a boolean query parameter. An empty string means false.
func NewFlag(s string) (*Flag, error) {
	if s == "" {
		return &Flag{}, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid boolean parameter %q", s)
	}
	return &Flag{value: v}, nil
}

// Bool returns the flag value.
func (f *Flag) Bool() bool {
	return f.value
}
