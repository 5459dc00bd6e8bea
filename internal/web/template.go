package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/sprinklerd/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>sprinklerd</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 30%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.rainhold { color: #2277cc; font-weight: bold; }
.running { color: green; font-weight: bold; }
</style>
</head>
<body>
<h1>sprinklerd</h1>

<h2>State</h2>
<table>
<tr><th>On</th><td class="{{if .On}}on{{else}}off{{end}}">{{if .On}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Mode</th><td class="{{if eq .Mode "running"}}running{{else if eq .Mode "rainhold"}}rainhold{{end}}">{{.Mode}}</td></tr>
{{if .RainHold}}<tr><th>Rain hold until</th><td>{{.RainDeadline.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
{{if .Running}}<tr><th>Running</th><td>{{.CurrentName}} ({{.Remaining}}s left{{if .CurrentParent}}, program {{.CurrentParent}}{{end}})</td></tr>{{end}}
</table>

<h2>Queue</h2>
<table>
<tr><th>Zone</th><th>Seconds</th><th>Program</th></tr>
{{range .Queue}}<tr><td>{{if .Name}}{{.Name}}{{else}}(pause){{end}}</td><td>{{.Seconds}}</td><td>{{.Parent}}</td></tr>{{else}}<tr><td colspan="3">empty</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
{{if .Config.UDPPort}}<tr><th>UDP</th><td>{{.Config.UDPPort}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
