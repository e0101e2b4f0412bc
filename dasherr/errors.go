// Package dasherr holds the error kinds shared by the dashboard pipeline.
//
// Fetch and parse failures abort a render. Template contract and dimension
// errors mean the template and the code disagree and no retry will help.
package dasherr

import "fmt"

// FetchError is a transport failure or a non-success status from an upstream.
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: fetch failed with status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: fetch failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is an upstream body or document that does not match the expected schema.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse failed: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError is a missing or invalid configuration value.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TemplateContractError means a node the renderer relies on is missing or has the wrong kind.
type TemplateContractError struct {
	NodeID string
	Reason string
}

func (e *TemplateContractError) Error() string {
	return fmt.Sprintf("template node %q: %s", e.NodeID, e.Reason)
}

// DimensionMismatchError is returned when a pixel buffer cannot be packed 8 pixels per byte.
type DimensionMismatchError struct {
	Pixels int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("pixel count %d is not a multiple of 8", e.Pixels)
}
