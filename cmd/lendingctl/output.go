package main

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/bookshare/lending/lending"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type failureOutput struct {
	Outcome   string `json:"outcome"`
	Retryable bool   `json:"retryable"`
	Error     string `json:"error"`
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func writeFailure(w io.Writer, err error) {
	outcome := lending.OutcomeOf(err)

	_ = writeJSON(w, failureOutput{
		Outcome:   outcome.String(),
		Retryable: outcome.Retryable(),
		Error:     err.Error(),
	})
}

// exitCode maps the outcome of err to the process exit code.
func exitCode(err error) int {
	switch lending.OutcomeOf(err) {
	case lending.OutcomeOK:
		return 0
	case lending.OutcomeInvalidInput:
		return 2
	case lending.OutcomeNotFound:
		return 3
	case lending.OutcomeForbidden:
		return 4
	case lending.OutcomeConflict:
		return 5
	case lending.OutcomeInvalidState:
		return 6
	default:
		return 1
	}
}
