package main

import "os"

// envOr returns the named environment variable, or def if unset.
func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}
