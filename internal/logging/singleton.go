package logging

import (
	"sync"
)

var (
	instance *Logger
	once     sync.Once
	initErr  error
)

// InitLogger initializes the global logger. Safe to call more than once;
// only the first call takes effect.
func InitLogger(config *Config) error {
	once.Do(func() {
		instance, initErr = NewLogger(config)
	})
	return initErr
}

// GetGlobalLogger returns the singleton logger instance. It panics if
// InitLogger has not been called successfully.
func GetGlobalLogger() *Logger {
	if instance == nil {
		panic("logger not initialized - call logging.InitLogger() first")
	}
	return instance
}
