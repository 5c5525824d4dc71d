package mailer

import (
	"bytes"
	"html/template"
)

type activationData struct {
	Name string
	Link string
	TTL  string
}

type resetData struct {
	Name  string
	Token string
	Link  string
	TTL   string
}

type changedData struct {
	Name string
}

var (
	activationTmpl = template.Must(template.New("activation").Parse(`<!DOCTYPE html>
<html><body style="font-family: sans-serif;">
<h2>Welcome to Stores Finder, {{.Name}}</h2>
<p>Please confirm your email address to activate your account.</p>
<p><a href="{{.Link}}">Activate my account</a></p>
<p>This link expires in {{.TTL}}.</p>
</body></html>`))

	resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html><body style="font-family: sans-serif;">
<h2>Password reset</h2>
<p>Hi {{.Name}}, we received a request to reset your password.</p>
<p>Your reset code: <code>{{.Token}}</code></p>
{{if .Link}}<p><a href="{{.Link}}">Choose a new password</a></p>
{{end}}
<p>The code expires in {{.TTL}}. If you did not ask for a reset, ignore this email.</p>
</body></html>`))

	changedTmpl = template.Must(template.New("changed").Parse(`<!DOCTYPE html>
<html><body style="font-family: sans-serif;">
<h2>Your password was changed</h2>
<p>Hi {{.Name}}, the password of your Stores Finder account was just changed.</p>
<p>If this was not you, reset your password immediately.</p>
</body></html>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
