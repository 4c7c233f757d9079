package paywall

import "html/template"

// defaultTemplateData feeds the built-in paywall page. All fields are
// plain display values — html/template escapes them per context, so a
// tenant-controlled description or name can't break out of its slot.
type defaultTemplateData struct {
	EndpointName    string
	Description     string
	PriceDisplay    string
	Theme           string
	WalletConnectID string
	ConfigBase64    string
}

// defaultTemplate renders a static payment page: all wallet interaction
// happens client-side (spec §4.5) and is out of scope for this renderer.
var defaultTemplate = template.Must(template.New("paywall-default").Parse(`<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .EndpointName}}{{.EndpointName}} - {{end}}Payment Required</title>
<meta name="x-paywall-config" content="{{.ConfigBase64}}">
{{if .WalletConnectID}}<meta name="x-walletconnect-project-id" content="{{.WalletConnectID}}">{{end}}
<style>
  body { font-family: system-ui, sans-serif; max-width: 32rem; margin: 4rem auto; padding: 0 1.5rem; color: #1a1a1a; }
  h1 { font-size: 1.25rem; }
  .price { font-size: 2rem; font-weight: 600; margin: 1.5rem 0; }
  .description { color: #555; }
  [data-theme="dark"] { background: #111; color: #eee; }
</style>
</head>
<body>
<h1>{{if .EndpointName}}{{.EndpointName}}{{else}}Payment Required{{end}}</h1>
{{if .Description}}<p class="description">{{.Description}}</p>{{end}}
<p class="price">${{.PriceDisplay}}</p>
<p>This resource requires payment. Connect a wallet to sign the payment authorization embedded in this page's <code>x-paywall-config</code> meta tag.</p>
</body>
</html>
`))
