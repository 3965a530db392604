package disaster

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pixil98/go-settle/internal/settlement"
	"github.com/pixil98/go-settle/internal/storage"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// advisoryWidth is the wrap column for advisory text.
const advisoryWidth = 80

// templateFuncs provides utility functions for advisory templates.
var templateFuncs = sprig.TxtFuncMap()

// AdvisoryData is what advisory templates render against.
type AdvisoryData struct {
	Disaster   string
	Type       string
	Severity   int
	Biome      string
	Settlement string
	Lead       string
}

const defaultAdvisory = "{{ .Disaster }} warning for settlement {{ .Settlement }}: " +
	"severity {{ .Severity }}, impact expected in {{ .Lead }}. Reinforce vulnerable " +
	"structures, move settlers to shelter, and stock food and water before impact."

// Advisory renders the recommended-actions text sent with a warning event.
// A catalog spec may carry its own template body; without one the default
// advisory is used. Render failures fall back to plain text so the warning
// still goes out.
func (d *Director) Advisory(ctx context.Context, s *settlement.Settlement, ev *settlement.DisasterEvent) string {
	data := AdvisoryData{
		Disaster:   cases.Title(language.English).String(ev.Type),
		Type:       ev.Type,
		Severity:   ev.Severity,
		Biome:      ev.Biome,
		Settlement: s.Id,
		Lead:       leadText(ev.WarnedAt, ev.ImpactAt),
	}

	body := defaultAdvisory
	if spec := d.disasters.Get(storage.Identifier(ev.Type)); spec != nil {
		if spec.Name != "" {
			data.Disaster = spec.Name
		}
		if spec.Advisory != "" {
			body = spec.Advisory
		}
	}

	text, err := expandAdvisory(body, data)
	if err != nil {
		slog.WarnContext(ctx, "advisory template failed, using fallback", "type", ev.Type, "error", err)
		text = fmt.Sprintf("%s warning for settlement %s: severity %d, impact expected in %s.",
			data.Disaster, data.Settlement, data.Severity, data.Lead)
	}

	return wordwrap.String(text, advisoryWidth)
}

// expandAdvisory expands a template body against the advisory data.
func expandAdvisory(body string, data AdvisoryData) (string, error) {
	tmpl, err := template.New("advisory").Funcs(templateFuncs).Parse(body)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

// leadText is the humanized span between warning and impact.
func leadText(from, to time.Time) string {
	return strings.TrimSpace(humanize.RelTime(from, to, "", ""))
}
