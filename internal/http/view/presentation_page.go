package view

import (
	"bytes"
	"html/template"
)

// PresentationPageData provides the dynamic fields of a presentation landing page.
type PresentationPageData struct {
	ID          string
	Title       string
	Description string
	Note        string
	Theme       string
	TargetURL   string
	// ImageURL is the scannable code shown on the page, TargetURL when empty.
	// A non-empty QRDataURI replaces it with a generated code.
	ImageURL  string
	QRDataURI template.URL
	ExpiresAt string
}

var presentationPageTmpl = template.Must(template.New("presentation_page").Parse(`
<!DOCTYPE html>
<html lang="en" class="{{.Theme}}">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{.Title}}</title>
	<style>
		:root {
			--bg: #f7f7f7;
			--card: #ffffff;
			--text: #333333;
			--muted: #888888;
			--accent: #07c160;
			font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
		}
		html.dark {
			--bg: #1f1f1f;
			--card: #2d2d2d;
			--text: #f0f0f0;
		}
		@media (prefers-color-scheme: dark) {
			html.auto {
				--bg: #1f1f1f;
				--card: #2d2d2d;
				--text: #f0f0f0;
			}
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			flex-direction: column;
			align-items: center;
			justify-content: center;
			background: var(--bg);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border-radius: 12px;
			padding: 24px;
			width: min(460px, 92vw);
			text-align: center;
			box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1);
		}
		.title {
			font-size: 1.5rem;
			font-weight: bold;
			margin-bottom: 10px;
		}
		.description { margin-bottom: 20px; }
		.qrcode { max-width: 100%; height: auto; }
		.note, .meta {
			font-size: 0.85rem;
			color: var(--muted);
		}
		footer {
			margin-top: 24px;
			font-size: 0.8rem;
		}
		footer a { color: var(--accent); text-decoration: none; }
	</style>
</head>
<body>
	<div class="card">
		<div class="title">{{.Title}}</div>
		<div class="description">{{.Description}}</div>
		<img class="qrcode" alt="{{.Title}}" src="{{if .QRDataURI}}{{.QRDataURI}}{{else}}{{.ImageURL}}{{end}}" />
		{{if .Note}}<p class="note">{{.Note}}</p>{{end}}
		<p class="meta">Expires: {{.ExpiresAt}}</p>
	</div>
	<footer><a href="{{.TargetURL}}">{{.TargetURL}}</a></footer>
</body>
</html>
`))

// RenderPresentationPage expands the landing page template with data.
func RenderPresentationPage(data PresentationPageData) (string, error) {
	if data.Title == "" {
		data.Title = "Scan the QR code"
	}
	if data.Description == "" {
		data.Description = "Scan the code below"
	}
	switch data.Theme {
	case "light", "dark":
	default:
		data.Theme = "auto"
	}
	if data.ImageURL == "" {
		data.ImageURL = data.TargetURL
	}
	if data.ExpiresAt == "" {
		data.ExpiresAt = "never"
	}

	var buf bytes.Buffer
	if err := presentationPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
