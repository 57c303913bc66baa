package coordinator

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/authweave/idkit/plugin"
)

var loginPageTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sign in</title>
</head>
<body>
<main class="login">
<h1>Sign in</h1>
{{range .Fragments}}<section class="login-method login-method-{{.Name}}">
{{.HTML}}
</section>
{{end}}</main>
</body>
</html>
`))

type loginFragment struct {
	Name string
	HTML template.HTML
}

// LoginPage composes the unified login page from every enabled plugin's
// fragment, ordered by priority. A plugin that cannot render is logged
// and left out; it never takes the page down with it.
func (c *Coordinator) LoginPage(authCtx *plugin.Context) string {
	var fragments []loginFragment
	for _, desc := range c.Descriptors() {
		p := c.Lookup(desc.Name)
		if p == nil || !p.CanHandle(authCtx) {
			continue
		}
		html, err := c.renderFragment(p, authCtx)
		if err != nil {
			c.log.Warn("Plugin failed to render its login fragment", map[string]interface{}{
				"plugin": desc.Name,
				"error":  err.Error(),
			})
			continue
		}
		fragments = append(fragments, loginFragment{Name: desc.Name, HTML: template.HTML(html)})
	}

	var page strings.Builder
	if err := loginPageTemplate.Execute(&page, map[string]interface{}{"Fragments": fragments}); err != nil {
		c.log.Error("Login page composition failed", map[string]interface{}{"error": err.Error()})
		return "<!DOCTYPE html><html><body><h1>Sign in</h1></body></html>"
	}
	return page.String()
}

func (c *Coordinator) renderFragment(p plugin.Plugin, authCtx *plugin.Context) (html string, err error) {
	defer func() {
		if r := recover(); r != nil {
			html = ""
			err = fmt.Errorf("render panicked: %v", r)
		}
	}()
	return p.RenderLogin(authCtx)
}
