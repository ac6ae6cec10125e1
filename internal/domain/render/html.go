package render

import (
	"fmt"
	"html/template"
	"io"
)

const reportHTML = `{{define "report"}}{{if .}}
<section class="panel overall tone-{{.Overall.Tone}}">
  <h2>{{heading}}</h2>
  <div class="overall-percent">{{.Overall.PercentLabel}}</div>
  <div class="category">{{.Overall.Category}}</div>
</section>
{{range .Sections}}
<section class="panel section tone-{{.Best.Tone}}" id="section-{{.Name}}">
  <h3>{{.Name}} <span class="percent">{{.Best.PercentLabel}}</span></h3>
  <div class="category">{{.Best.Category}}</div>
  {{- if .HasMatches}}
  <table class="matches">
    <thead><tr><th>{{colPercent}}</th><th>{{colTitle}}</th><th>{{colLink}}</th></tr></thead>
    <tbody>
    {{- range .Matches}}
      <tr class="tone-{{.Tone}}"><td>{{.PercentLabel}}</td><td>{{.Title}}</td><td>{{if .URL}}<a href="{{.URL}}" target="_blank" rel="noopener">{{.LinkLabel}}</a>{{end}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  {{- else}}
  <div class="placeholder">{{.Placeholder}}</div>
  {{- end}}
</section>
{{end}}{{end}}{{end}}`

// Funcs exposes the fixed text used by the report template so that pages
// embedding it through Template can parse it with the same functions.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"heading":    func() string { return OverallHeading },
		"colPercent": func() string { return ColumnPercent },
		"colTitle":   func() string { return ColumnTitle },
		"colLink":    func() string { return ColumnLink },
	}
}

var reportTemplate = template.Must(template.New("render").Funcs(Funcs()).Parse(reportHTML)) //nolint:gochecknoglobals // parsed once

// AddTo parses the "report" template into t so a page can call
// {{template "report" .View}}. t must have been given Funcs.
func AddTo(t *template.Template) (*template.Template, error) {
	out, err := t.Parse(reportHTML)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return out, nil
}

// WriteHTML writes the report area for v. A nil view writes nothing.
func WriteHTML(w io.Writer, v *View) error {
	if err := reportTemplate.ExecuteTemplate(w, "report", v); err != nil {
		return fmt.Errorf("render report html: %w", err)
	}
	return nil
}
