package templates

import (
	"bytes"
	"html/template"
	"log"
	"net/url"
	"strings"
)

// ButtonProps describes a call to action.
type ButtonProps struct {
	Text            string
	URL             string
	BackgroundColor string
	TextColor       string
}

// DetailRow is one label/value line of a details table.
type DetailRow struct {
	Label string
	Value string
}

var (
	buttonTemplate = template.Must(template.New("emailButton").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="btn btn-primary" style="border-collapse: separate; box-sizing: border-box; width: 100%; min-width: 100%;" width="100%">
      <tbody>
        <tr>
          <td align="left" style="font-family: Helvetica, sans-serif; font-size: 16px; vertical-align: top; padding-bottom: 16px;" valign="top">
            <a href="{{.URL}}" target="_blank" style="border: solid 2px {{.BackgroundColor}}; border-radius: 4px; display: inline-block; font-size: 16px; font-weight: bold; padding: 12px 24px; text-decoration: none; background-color: {{.BackgroundColor}}; color: {{.TextColor}};">{{.Text}}</a>
          </td>
        </tr>
      </tbody>
    </table>`))

	paragraphTemplate = template.Must(template.New("emailParagraph").Parse(`<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px; white-space: pre-line;">{{.}}</p>`))

	detailsTemplate = template.Must(template.New("emailDetails").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: collapse; width: 100%; margin-bottom: 16px;" width="100%">
      <tbody>{{range .}}
        <tr>
          <td style="font-family: Helvetica, sans-serif; font-size: 14px; color: #6b7280; padding: 6px 12px 6px 0; vertical-align: top; white-space: nowrap;" valign="top">{{.Label}}</td>
          <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 6px 0; vertical-align: top;" valign="top">{{.Value}}</td>
        </tr>{{end}}
      </tbody>
    </table>`))
)

func GetButton(props ButtonProps) string {
	data := ButtonProps{
		Text:            props.Text,
		URL:             sanitizeEmailURL(props.URL),
		BackgroundColor: sanitizeColor(props.BackgroundColor, "#1d4ed8"),
		TextColor:       sanitizeColor(props.TextColor, "#ffffff"),
	}
	if data.URL == "" {
		return GetParagraph(props.Text)
	}

	var buf bytes.Buffer
	if err := buttonTemplate.Execute(&buf, data); err != nil {
		log.Printf("Error executing email button template: %v", err)
		return ""
	}
	return buf.String()
}

// GetParagraph renders escaped text. Line breaks are kept.
func GetParagraph(text string) string {
	var buf bytes.Buffer
	if err := paragraphTemplate.Execute(&buf, text); err != nil {
		log.Printf("Error executing email paragraph template: %v", err)
		return ""
	}
	return buf.String()
}

// GetDetails renders the non-empty rows as a two column table.
func GetDetails(rows []DetailRow) string {
	filled := make([]DetailRow, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Value) != "" {
			filled = append(filled, r)
		}
	}
	if len(filled) == 0 {
		return ""
	}

	var buf bytes.Buffer
	if err := detailsTemplate.Execute(&buf, filled); err != nil {
		log.Printf("Error executing email details template: %v", err)
		return ""
	}
	return buf.String()
}

// sanitizeEmailURL keeps only http, https and mailto links.
func sanitizeEmailURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto":
		return parsed.String()
	}
	log.Printf("Blocked unsafe URL scheme in email: %s", parsed.Scheme)
	return ""
}

// sanitizeColor accepts #rgb or #rrggbb, otherwise fallback.
func sanitizeColor(color, fallback string) string {
	color = strings.TrimSpace(color)
	if !strings.HasPrefix(color, "#") {
		return fallback
	}
	hex := color[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return fallback
	}
	for _, c := range hex {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return fallback
		}
	}
	return color
}
