package server

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/cloudclip-dev/cloudclip/pkg/observability"
	"github.com/cloudclip-dev/cloudclip/pkg/session"
)

// adminPage is the server-rendered dashboard. Unlike the API it carries no
// credentials to the browser: session data is read directly from the store
// at render time.
var adminPage = template.Must(template.New("admin").Funcs(template.FuncMap{
	"ago": func(t time.Time) string {
		d := time.Since(t)
		switch {
		case d < time.Minute:
			return d.Truncate(time.Second).String() + " ago"
		case d < time.Hour:
			return d.Truncate(time.Minute).String() + " ago"
		default:
			return d.Truncate(time.Hour).String() + " ago"
		}
	},
	"join": func(items []string) string {
		if len(items) == 0 {
			return "No hosts"
		}
		out := items[0]
		for _, s := range items[1:] {
			out += ", " + s
		}
		return out
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Cloud Clipboard Admin</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
         background: #f5f5f7; margin: 0; padding: 20px; }
  .container { max-width: 1000px; margin: 0 auto; }
  .header, .sessions { background: white; border-radius: 8px;
         box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
  .header { padding: 20px; margin-bottom: 20px; }
  h1 { margin: 0; color: #1d1d1f; }
  .stats { display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
         gap: 15px; margin-bottom: 20px; }
  .stat-card { background: white; padding: 20px; border-radius: 8px; text-align: center;
         box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
  .stat-number { font-size: 24px; font-weight: bold; color: #007AFF; }
  .stat-label { font-size: 14px; color: #666; margin-top: 5px; }
  .session-item { padding: 15px 20px; border-bottom: 1px solid #eee;
         display: flex; justify-content: space-between; align-items: center; }
  .session-item:last-child { border-bottom: none; }
  .session-id { font-family: monospace; font-size: 18px; font-weight: bold; color: #007AFF; }
  .session-info { flex-grow: 1; margin-left: 20px; }
  .hostnames { font-size: 14px; color: #333; }
  .activity { font-size: 12px; color: #999; }
  .empty { padding: 40px; text-align: center; color: #666; }
  .end-btn { background: #ff3b30; color: white; border: none; padding: 8px 14px;
         border-radius: 6px; cursor: pointer; font-size: 13px; }
  .end-btn:hover { background: #d70015; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Cloud Clipboard Admin</h1>
    <div>Updated: {{.Now.Format "15:04:05"}}</div>
  </div>
  <div class="stats">
    <div class="stat-card">
      <div class="stat-number">{{len .Sessions}}</div>
      <div class="stat-label">Active Sessions</div>
    </div>
    <div class="stat-card">
      <div class="stat-number">{{.TotalHosts}}</div>
      <div class="stat-label">Connected Hosts</div>
    </div>
    <div class="stat-card">
      <div class="stat-number">{{.TotalItems}}</div>
      <div class="stat-label">Clipboard Items</div>
    </div>
  </div>
  <div class="sessions">
    {{if not .Sessions}}<div class="empty">No active sessions</div>{{end}}
    {{range .Sessions}}
    <div class="session-item">
      <div class="session-id">{{.SessionID}}</div>
      <div class="session-info">
        <div class="hostnames">{{join .Hostnames}}</div>
        <div class="activity">Last: {{ago .LastActivity}} &bull; {{.ItemCount}} items</div>
      </div>
      <form method="POST" action="/admin/session/{{.SessionID}}/end">
        <button class="end-btn" type="submit">End Session</button>
      </form>
    </div>
    {{end}}
  </div>
</div>
</body>
</html>
`))

type adminData struct {
	Now        time.Time
	Sessions   []adminSession
	TotalHosts int
	TotalItems int
}

type adminSession struct {
	SessionID    string
	Hostnames    []string
	LastActivity time.Time
	ItemCount    int
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListActive(r.Context())
	if err != nil {
		http.Error(w, "failed to load sessions", http.StatusInternalServerError)
		return
	}

	data := adminData{Now: time.Now()}
	hosts := make(map[string]struct{})
	for _, sum := range summaries {
		data.Sessions = append(data.Sessions, adminSession{
			SessionID:    sum.SessionID,
			Hostnames:    sum.Hostnames,
			LastActivity: sum.LastActivity,
			ItemCount:    sum.ItemCount,
		})
		for _, h := range sum.Hostnames {
			hosts[h] = struct{}{}
		}
		data.TotalItems += sum.ItemCount
	}
	data.TotalHosts = len(hosts)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := adminPage.Execute(w, data); err != nil {
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
	}
}

// handleAdminEnd ends a session from the dashboard. The form posts back to
// the server, which calls the store directly, so the page stays
// credential-free. A session already gone just redirects back.
func (s *Server) handleAdminEnd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.store.End(r.Context(), id)
	switch {
	case err == nil:
		observability.RecordSessionEnded()
	case errors.Is(err, session.ErrSessionNotFound):
	default:
		http.Error(w, "failed to end session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
