package config

import "os"

// lookupEnv is a thin wrapper over os.LookupEnv used by the recognised-key
// override logic in config.go; it reads the process environment directly.
func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}
