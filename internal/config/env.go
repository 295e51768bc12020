package config

import (
	"os"
	"strings"
)

// Env is a snapshot of environment variables, taken once at process start.
type Env map[string]string

// Environ captures the current process environment.
func Environ() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Lookup returns the value of key and whether it is set.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// Get returns the value of key, or "" when unset.
func (e Env) Get(key string) string {
	return e[key]
}
