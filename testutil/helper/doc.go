// Package helper provides fixtures, a slog capture handler and observability spies for the lending tests.
package helper
