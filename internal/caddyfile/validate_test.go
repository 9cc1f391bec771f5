package caddyfile

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantValid bool
		wantErr   string
		wantWarn  string
	}{
		{
			name:      "empty config",
			content:   "",
			wantValid: false,
			wantErr:   "empty",
		},
		{
			name:      "whitespace only",
			content:   "   \n\t  ",
			wantValid: false,
			wantErr:   "empty",
		},
		{
			name:      "unmatched brace",
			content:   "{ unmatched",
			wantValid: false,
			wantErr:   "mismatched braces",
		},
		{
			name:      "two port 80 listeners",
			content:   "{\n\tadmin localhost:2019\n}\n:80 {\n\trespond 404\n}\n:80 {\n\trespond 404\n}\n",
			wantValid: false,
			wantErr:   "port conflict",
		},
		{
			name:      "missing admin directive",
			content:   ":80 {\n\trespond \"ok\" 200\n}\n",
			wantValid: true,
			wantWarn:  "admin",
		},
		{
			name:      "default config is valid",
			content:   defaultMinimalConfig,
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.content)
			if v.IsValid != tt.wantValid {
				t.Fatalf("Validate() valid = %v, want %v (errors: %v)", v.IsValid, tt.wantValid, v.Errors)
			}
			if tt.wantErr != "" && !containsSubstring(v.Errors, tt.wantErr) {
				t.Errorf("errors %v missing %q", v.Errors, tt.wantErr)
			}
			if tt.wantWarn != "" && !containsSubstring(v.Warnings, tt.wantWarn) {
				t.Errorf("warnings %v missing %q", v.Warnings, tt.wantWarn)
			}
		})
	}
}

func TestValidateIsPure(t *testing.T) {
	content := "{ unmatched"
	first := Validate(content)
	second := Validate(content)
	if first.IsValid != second.IsValid || len(first.Errors) != len(second.Errors) {
		t.Errorf("Validate is not deterministic: %v vs %v", first, second)
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
