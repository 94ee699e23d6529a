package exporter

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"resumeagent/internal/errors"
)

// stylesheet is applied to every exported document. H1 carries the
// document title, H2 marks sections with an underline, lists are indented.
const stylesheet = `
@page { size: A4; margin: 18mm 16mm; }
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 11pt; line-height: 1.45; color: #222; margin: 0; }
h1 { font-size: 22pt; margin: 0 0 6pt 0; color: #111; }
h2 { font-size: 13pt; margin: 14pt 0 6pt 0; padding-bottom: 3pt; border-bottom: 1px solid #444; text-transform: uppercase; letter-spacing: 0.5pt; }
h3 { font-size: 11.5pt; margin: 10pt 0 4pt 0; }
p { margin: 0 0 6pt 0; }
ul, ol { margin: 0 0 6pt 0; padding-left: 18pt; }
li { margin-bottom: 2pt; }
a { color: #1a4f8b; text-decoration: none; }
table { border-collapse: collapse; width: 100%; }
td, th { border: 1px solid #ccc; padding: 3pt 5pt; }
`

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>{{.CSS}}</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts markdown into a standalone, styled HTML document
func RenderHTML(title, source string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(source), &body); err != nil {
		return "", errors.NewExportError(errors.ErrCodeRenderFailed, "failed to convert markdown", err)
	}

	var doc bytes.Buffer
	err := documentTemplate.Execute(&doc, struct {
		Title string
		CSS   template.CSS
		Body  template.HTML
	}{
		Title: title,
		CSS:   template.CSS(stylesheet),
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return "", errors.NewExportError(errors.ErrCodeRenderFailed, "failed to build HTML document", err)
	}
	return doc.String(), nil
}
