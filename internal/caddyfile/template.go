package caddyfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/wakedock/wakeproxy/internal/caddy"
)

// defaultMinimalConfig is the safe bootstrap config: health endpoint,
// catch-all 404 and an import of per-service fragment files.
const defaultMinimalConfig = `{
	admin localhost:2019
}

:80 {
	respond /health "OK" 200
	respond "Service not found" 404
}

import services/*.caddy
`

// overrideTemplateName is looked up in the templates/ directory before the
// embedded default is used. Override content is opaque text as far as the
// manager is concerned.
const overrideTemplateName = "Caddyfile.tmpl"

// defaultTemplate renders one reverse-proxy block per eligible service with
// the standard security headers.
const defaultTemplate = `{
	admin localhost:2019
}

:80 {
	respond /health "OK" 200
	respond "Service not found" 404
}
{{ range .Services }}
{{ if .TLS }}{{ .Domain }}{{ else }}http://{{ .Domain }}{{ end }} {
	reverse_proxy {{ .Upstream }}
	header {
		X-Frame-Options "DENY"
		X-Content-Type-Options "nosniff"
		X-XSS-Protection "1; mode=block"
	}
}
{{ end }}`

// serviceBinding is what the template sees for each eligible service.
type serviceBinding struct {
	Name     string
	Domain   string
	Upstream string
	TLS      bool
}

// templateData is the root object bound to the config template.
type templateData struct {
	Services []serviceBinding
}

// Generate renders the config for the given service list. Only services
// that are running and carry a domain are bound. The rendered text is
// returned, not written; callers decide whether to Save it.
func (m *Manager) Generate(services []caddy.ServiceDescriptor) (string, error) {
	tmpl, err := m.loadTemplate()
	if err != nil {
		return "", err
	}

	data := templateData{}
	for _, svc := range services {
		if svc.Status != caddy.ServiceRunning || svc.Domain == "" {
			continue
		}
		data.Services = append(data.Services, serviceBinding{
			Name:     svc.Name,
			Domain:   svc.Domain,
			Upstream: caddy.FormatUpstream(svc.Name, svc.Port),
			TLS:      true,
		})
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render config template: %w", err)
	}
	return sb.String(), nil
}

// loadTemplate prefers an installed override and falls back to the embedded
// default.
func (m *Manager) loadTemplate() (*template.Template, error) {
	override := filepath.Join(m.templatesDir, overrideTemplateName)
	if data, err := os.ReadFile(override); err == nil {
		tmpl, err := template.New(overrideTemplateName).Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse override template %s: %w", override, err)
		}
		return tmpl, nil
	}

	tmpl, err := template.New("default").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default template: %w", err)
	}
	return tmpl, nil
}
