// Package config loads the lending configuration from the environment (and an optional .env file)
// and builds the database connections and the store for the configured engine.
package config
