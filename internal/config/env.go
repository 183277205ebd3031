package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the parsed value of key, or fallback when it is unset or malformed
func lookup[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := parse(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnv(key, fallback string) string {
	return lookup(key, fallback, func(s string) (string, error) { return s, nil })
}

func getIntEnv(key string, fallback int) int {
	return lookup(key, fallback, strconv.Atoi)
}

func getBoolEnv(key string, fallback bool) bool {
	return lookup(key, fallback, strconv.ParseBool)
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	return lookup(key, fallback, time.ParseDuration)
}

// getListEnv splits a comma separated value, dropping blank entries
func getListEnv(key string, fallback []string) []string {
	return lookup(key, fallback, func(s string) ([]string, error) {
		var items []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return nil, strconv.ErrSyntax
		}
		return items, nil
	})
}
