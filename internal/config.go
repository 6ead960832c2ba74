package internal

import (
	"fmt"
	"strings"
	"time"
)

const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

type Config struct {
	StoreBackend    string        `env:"STORE_BACKEND,default=badger"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,default=./data/chatspace"`
	RedisURL        string        `env:"REDIS_URL,default=redis://localhost:6379/0"`
	Namespace       string        `env:"APP_NAMESPACE,default=chatspace-v1"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	UID             string        `env:"CHATSPACE_UID"`
	PhotoURL        string        `env:"PHOTO_URL"`
	CensoredWords   string        `env:"CENSORED_WORDS"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=500ms"`
	SearchLimit     int           `env:"SEARCH_LIMIT,default=10"`
	DebugPort       int           `env:"DEBUG_PORT"`
}

// Validate checks the values go-env cannot express as tags.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendBadger, BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendBadger, BackendRedis, c.StoreBackend)
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("APP_NAMESPACE must not be empty")
	}
	if c.RestartInterval <= 0 {
		return fmt.Errorf("RESTART_INTERVAL must be positive, got %s", c.RestartInterval)
	}
	return nil
}

// Words splits CENSORED_WORDS on commas, dropping blanks.
func (c Config) Words() []string {
	var words []string
	for _, w := range strings.Split(c.CensoredWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
