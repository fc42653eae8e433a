package notifier

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"notify-engine/internal/domain/entity"
)

// placeholderPattern matches {{token}} placeholders in tenant templates.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	blankLinesPattern = regexp.MustCompile(`\n{3,}`)
	nameSeparators    = regexp.MustCompile(`[._\-+]+`)
)

var defaultLayout = template.Must(template.New("default_email").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;background:#f5f6f8;font-family:Arial,Helvetica,sans-serif;color:#1f2933">
<div style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:6px;padding:24px">
<h2 style="margin-top:0">{{.Title}}</h2>
<p>Hi {{.UserName}},</p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{if .Reference}}<p style="color:#7b8794;font-size:12px">{{.Reference}}</p>
{{end}}</div>
</body>
</html>
`))

type layoutData struct {
	Title      string
	UserName   string
	Paragraphs []string
	Reference  string
}

// renderedEmail is the content handed to the EmailSender.
type renderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

// renderDefault renders the built-in layout from the notification's title and body.
func renderDefault(n *entity.Notification) (renderedEmail, error) {
	data := layoutData{
		Title:      n.Title,
		UserName:   humanizeName(n.User),
		Paragraphs: paragraphs(n.Body),
	}
	if n.EntityType != "" {
		data.Reference = strings.TrimSpace(n.EntityType + " " + n.EntityID)
	}

	var buf bytes.Buffer
	if err := defaultLayout.Execute(&buf, data); err != nil {
		return renderedEmail{}, fmt.Errorf("render default email layout: %w", err)
	}

	text := fmt.Sprintf("Hi %s,\n\n%s\n\n%s", data.UserName, n.Title, n.Body)
	if data.Reference != "" {
		text += "\n\n" + data.Reference
	}

	return renderedEmail{Subject: n.Title, HTML: buf.String(), Text: text}, nil
}

// renderCustom substitutes placeholders of a tenant template. Values are
// HTML-escaped in the body and inserted verbatim in the subject.
func renderCustom(tmpl *entity.EmailTemplate, n *entity.Notification) renderedEmail {
	vars := templateVars(n)

	body := renderPlaceholders(tmpl.BodyTemplate, vars, html.EscapeString)
	return renderedEmail{
		Subject: renderPlaceholders(tmpl.Subject, vars, nil),
		HTML:    body,
		Text:    htmlToText(body),
	}
}

// templateVars builds the substitution table: notification fields and the
// humanized user name, overridden by entries of the notification metadata.
func templateVars(n *entity.Notification) map[string]string {
	vars := map[string]string{
		"title":      n.Title,
		"body":       n.Body,
		"eventType":  n.EventType,
		"entityType": n.EntityType,
		"entityId":   n.EntityID,
		"userName":   humanizeName(n.User),
		"userEmail":  n.User.Email,
	}
	for key, value := range n.Metadata {
		vars[key] = formatValue(value)
	}
	return vars
}

// renderPlaceholders replaces known {{token}}s. Unknown tokens are kept so a
// template typo stays visible instead of silently producing empty text.
func renderPlaceholders(text string, vars map[string]string, escape func(string) string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := vars[key]
		if !ok {
			return match
		}
		if escape != nil {
			return escape(value)
		}
		return value
	})
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+formatValue(val[k]))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// humanizeName turns "jane.doe" or "jane_doe@example.com" into "Jane Doe".
// A display name that already contains spaces is returned unchanged.
func humanizeName(u entity.User) string {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = u.Email
		if at := strings.IndexByte(name, '@'); at >= 0 {
			name = name[:at]
		}
	}
	if name == "" {
		return "there"
	}
	if strings.Contains(name, " ") {
		return name
	}

	words := strings.Fields(nameSeparators.ReplaceAllString(name, " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	if len(words) == 0 {
		return "there"
	}
	return strings.Join(words, " ")
}

func paragraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// htmlToText derives the plain-text alternative of an HTML body.
func htmlToText(body string) string {
	text := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n\n", "</div>", "\n").Replace(body)
	text = html.UnescapeString(tagPattern.ReplaceAllString(text, ""))
	return strings.TrimSpace(blankLinesPattern.ReplaceAllString(text, "\n\n"))
}
