package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// templateSource is one entry of templates.yaml
type templateSource struct {
	Subject string `yaml:"subject"`
	Text    string `yaml:"text"`
	HTML    string `yaml:"html"`
}

// template is a parsed email template
type template struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// Templates holds parsed email templates by kind
type Templates struct {
	byKind map[string]*template
}

// LoadTemplates parses the embedded templates
func LoadTemplates() (*Templates, error) {
	return ParseTemplates(templatesYAML)
}

// ParseTemplates parses a YAML document of templates keyed by kind
func ParseTemplates(data []byte) (*Templates, error) {
	var sources map[string]templateSource
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	t := &Templates{byKind: make(map[string]*template, len(sources))}
	for kind, src := range sources {
		if src.Subject == "" || src.HTML == "" {
			return nil, fmt.Errorf("template %s: subject and html are required", kind)
		}
		parsed := &template{}
		var err error
		if parsed.subject, err = texttemplate.New(kind + ".subject").Option("missingkey=error").Parse(src.Subject); err != nil {
			return nil, fmt.Errorf("template %s subject: %w", kind, err)
		}
		if parsed.text, err = texttemplate.New(kind + ".text").Option("missingkey=error").Parse(src.Text); err != nil {
			return nil, fmt.Errorf("template %s text: %w", kind, err)
		}
		if parsed.html, err = htmltemplate.New(kind + ".html").Option("missingkey=error").Parse(src.HTML); err != nil {
			return nil, fmt.Errorf("template %s html: %w", kind, err)
		}
		t.byKind[kind] = parsed
	}
	return t, nil
}

// Render fills the template for kind. The HTML part is escaped, the subject
// and text parts are not.
func (t *Templates) Render(kind, to string, data any) (*Message, error) {
	tmpl, ok := t.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", kind)
	}

	var subject, text, html bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := tmpl.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := tmpl.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render %s html: %w", kind, err)
	}

	return &Message{
		To:      to,
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
