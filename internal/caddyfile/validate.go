package caddyfile

import (
	"fmt"
	"strings"

	"github.com/wakedock/wakeproxy/internal/caddy"
)

// Validate performs structural validation of a candidate config string. It
// is pure: no I/O, never panics, and every problem is reported through the
// returned record.
func Validate(content string) caddy.ConfigValidation {
	v := caddy.ConfigValidation{IsValid: true, Errors: []string{}, Warnings: []string{}}

	if strings.TrimSpace(content) == "" {
		v.IsValid = false
		v.Errors = append(v.Errors, "configuration is empty")
		return v
	}

	open := strings.Count(content, "{")
	closed := strings.Count(content, "}")
	if open != closed {
		v.IsValid = false
		v.Errors = append(v.Errors, fmt.Sprintf("mismatched braces: %d opening, %d closing", open, closed))
	}

	if !strings.Contains(content, "admin") {
		v.Warnings = append(v.Warnings, "no admin directive found; the control plane cannot manage this config")
	}

	if n := countPort80Listeners(content); n > 1 {
		v.IsValid = false
		v.Errors = append(v.Errors, fmt.Sprintf("port conflict: %d listeners bound to port 80", n))
	}

	return v
}

// countPort80Listeners counts site addresses binding port 80 directly.
func countPort80Listeners(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		addr := strings.TrimSuffix(fields[0], "{")
		addr = strings.TrimSpace(addr)
		if strings.HasSuffix(addr, ":80") {
			n++
		}
	}
	return n
}
