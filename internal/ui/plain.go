package ui

import (
	"context"

	"github.com/a-h/templ"
)

type plainSkin struct{}

func (plainSkin) Name() string { return VersionPlain }

const plainCSS = `body{font-family:system-ui,sans-serif;margin:0;background:#f8fafc;color:#0f172a}
header{display:flex;justify-content:space-between;align-items:center;padding:.75rem 1.5rem;background:#0f172a;color:#fff}
header a{color:#fff;margin-right:1rem}
main{max-width:960px;margin:1.5rem auto;padding:0 1rem}
.card{background:#fff;border:1px solid #e2e8f0;border-radius:.5rem;padding:1rem 1.25rem;margin-bottom:1rem}
.field{display:flex;flex-direction:column;margin-bottom:.75rem}
.field input,.field select{padding:.4rem;border:1px solid #cbd5e1;border-radius:.25rem}
.field .error{color:#b91c1c;font-size:.85rem}
.btn{padding:.4rem .9rem;border-radius:.25rem;border:1px solid #1e293b;background:#1e293b;color:#fff;cursor:pointer}
.btn[disabled]{opacity:.5;cursor:not-allowed}
.btn-danger{background:#b91c1c;border-color:#b91c1c}
.btn-ghost{background:transparent;color:#1e293b}
table{width:100%;border-collapse:collapse}
th,td{text-align:left;padding:.4rem;border-bottom:1px solid #e2e8f0}
.toast{padding:.6rem 1rem;border-radius:.25rem;margin-bottom:1rem}
.toast-success{background:#dcfce7;color:#166534}
.toast-error{background:#fee2e2;color:#991b1b}
.dialog{border:1px solid #e2e8f0;padding:1rem;border-radius:.5rem;background:#fff}`

func (s plainSkin) Page(p PageData) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<!doctype html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>")
		w.text(p.Title)
		w.raw("</title><style>", plainCSS, "</style>", datastarScript, "</head><body>")
		w.raw("<header><nav>")
		if p.UserEmail != "" {
			w.raw(`<a href="/teams">Teams</a><a href="/settings/account">Account</a>`)
		}
		w.raw("</nav>")
		if p.UserEmail != "" {
			w.raw("<form method=\"post\" action=\"/logout\"><span>")
			w.text(p.UserEmail)
			w.raw("</span> <button class=\"btn btn-ghost\" type=\"submit\">Log out</button></form>")
		}
		w.raw("</header><main><h1>")
		w.text(p.Title)
		w.raw("</h1>")
		if p.Notice != nil {
			w.render(ctx, s.Toast(p.Notice.Message, p.Notice.Kind))
		} else {
			w.raw(`<div id="` + ToastID + `"></div>`)
		}
		w.render(ctx, p.Body...)
		w.raw("</main></body></html>")
	})
}

func (plainSkin) Card(title string, body ...templ.Component) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<section class=\"card\">")
		if title != "" {
			w.raw("<h2>")
			w.text(title)
			w.raw("</h2>")
		}
		w.render(ctx, body...)
		w.raw("</section>")
	})
}

func (plainSkin) TextField(f Field) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<div class=\"field\"><label")
		w.attr("for", f.Name)
		w.raw(">")
		w.text(f.Label)
		w.raw("</label>")
		fieldInput(w, f, "")
		if f.Error != "" {
			w.raw("<span class=\"error\">")
			w.text(f.Error)
			w.raw("</span>")
		}
		w.raw("</div>")
	})
}

func (plainSkin) SelectField(f Field, options []Option) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<div class=\"field\">")
		if f.Label != "" {
			w.raw("<label")
			w.attr("for", f.Name)
			w.raw(">")
			w.text(f.Label)
			w.raw("</label>")
		}
		fieldSelect(w, f, options, "")
		w.raw("</div>")
	})
}

func (plainSkin) SubmitButton(label string, disabled bool) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<button class=\"btn\" type=\"submit\"")
		if disabled {
			w.raw(" disabled")
		}
		w.raw(">")
		w.text(label)
		w.raw("</button>")
	})
}

func (plainSkin) GuardedSubmit(label, disabledWhen string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		guardedButton(w, label, disabledWhen, "btn")
	})
}

func (plainSkin) Table(id string, headers []string, rows [][]templ.Component) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<div")
		w.attr("id", id)
		w.raw(">")
		if len(rows) == 0 {
			w.raw("<p>Nothing here yet.</p></div>")
			return
		}
		w.raw("<table><thead><tr>")
		for _, h := range headers {
			w.raw("<th>")
			w.text(h)
			w.raw("</th>")
		}
		w.raw("</tr></thead><tbody>")
		for _, row := range rows {
			w.raw("<tr>")
			for _, cell := range row {
				w.raw("<td>")
				w.render(ctx, cell)
				w.raw("</td>")
			}
			w.raw("</tr>")
		}
		w.raw("</tbody></table></div>")
	})
}

func (plainSkin) Toast(message string, kind ToastKind) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw(`<div id="`+ToastID+`" role="status" class="toast toast-`, string(kind), `">`)
		w.text(message)
		w.raw("</div>")
	})
}

func (plainSkin) ConfirmDialog(d Dialog) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		open := dialogOpenSignal(d)
		w.raw("<div")
		w.attr("id", d.ID)
		w.attr("data-signals", "{"+open+": false}")
		w.raw("><button type=\"button\" class=\"btn btn-danger\"")
		w.attr("data-on:click", "$"+open+" = true")
		w.raw(">")
		w.text(d.TriggerLabel)
		w.raw("</button><div class=\"dialog\" role=\"dialog\"")
		w.attr("data-show", "$"+open)
		w.raw(" style=\"display:none\"><h3>")
		w.text(d.Title)
		w.raw("</h3><p>")
		w.text(d.Message)
		w.raw("</p>")
		dialogBody(w, d, "btn btn-danger", "btn btn-ghost")
		w.raw("</div></div>")
	})
}
