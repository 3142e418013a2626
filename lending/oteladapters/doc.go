// Package oteladapters provides OpenTelemetry implementations of the lending observability
// interfaces, so the store and the workflow engine can report to any OpenTelemetry backend.
package oteladapters
