package ui

import (
	"context"

	"github.com/a-h/templ"
)

// muiSkin mirrors Material UI markup and class names so the Material
// stylesheet applies without a client-side runtime.
type muiSkin struct{}

func (muiSkin) Name() string { return VersionMUI }

const muiHead = `<link rel="stylesheet" href="https://fonts.googleapis.com/css?family=Roboto:300,400,500,700&display=swap">
<style>
body{font-family:Roboto,Helvetica,Arial,sans-serif;margin:0;background:#f5f5f5;color:rgba(0,0,0,.87)}
.MuiAppBar-root{display:flex;justify-content:space-between;align-items:center;padding:0 24px;min-height:64px;background:#1976d2;color:#fff;box-shadow:0 2px 4px -1px rgba(0,0,0,.2)}
.MuiAppBar-root a{color:#fff;text-decoration:none;margin-right:16px;font-weight:500;text-transform:uppercase}
.MuiContainer-root{max-width:1024px;margin:24px auto;padding:0 24px}
.MuiTypography-h4{font-size:2.125rem;font-weight:400;margin:0 0 16px}
.MuiTypography-h6{font-size:1.25rem;font-weight:500;margin:0 0 12px}
.MuiCard-root{background:#fff;border-radius:4px;box-shadow:0 1px 3px rgba(0,0,0,.12),0 1px 1px rgba(0,0,0,.14);margin-bottom:16px}
.MuiCardContent-root{padding:16px}
.MuiFormControl-root{display:flex;flex-direction:column;margin-bottom:16px}
.MuiInputLabel-root{font-size:.75rem;color:rgba(0,0,0,.6);margin-bottom:4px}
.MuiInputBase-input{padding:16.5px 14px;border:1px solid rgba(0,0,0,.23);border-radius:4px;font-size:1rem}
.MuiFormHelperText-root.Mui-error{color:#d32f2f;font-size:.75rem;margin:3px 14px 0}
.MuiButton-root{padding:6px 16px;border-radius:4px;border:0;font-weight:500;text-transform:uppercase;letter-spacing:.02857em;cursor:pointer}
.MuiButton-contained{background:#1976d2;color:#fff}
.MuiButton-containedError{background:#d32f2f;color:#fff}
.MuiButton-text{background:transparent;color:#1976d2}
.MuiButton-root.Mui-disabled{background:rgba(0,0,0,.12);color:rgba(0,0,0,.26);cursor:default}
.MuiTable-root{width:100%;border-collapse:collapse}
.MuiTableCell-root{padding:16px;border-bottom:1px solid rgba(224,224,224,1);text-align:left}
.MuiTableCell-head{font-weight:500}
.MuiAlert-root{padding:6px 16px;border-radius:4px;margin-bottom:16px}
.MuiAlert-standardSuccess{background:#edf7ed;color:#1e4620}
.MuiAlert-standardError{background:#fdeded;color:#5f2120}
.MuiDialog-paper{background:#fff;border-radius:4px;padding:16px 24px;box-shadow:0 11px 15px -7px rgba(0,0,0,.2)}
</style>`

func (s muiSkin) Page(p PageData) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<!doctype html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>")
		w.text(p.Title)
		w.raw("</title>", muiHead, datastarScript, "</head><body>")
		w.raw("<header class=\"MuiAppBar-root\"><nav>")
		if p.UserEmail != "" {
			w.raw(`<a href="/teams">Teams</a><a href="/settings/account">Account</a>`)
		}
		w.raw("</nav>")
		if p.UserEmail != "" {
			w.raw("<form method=\"post\" action=\"/logout\"><span class=\"MuiTypography-body2\">")
			w.text(p.UserEmail)
			w.raw("</span> <button class=\"MuiButton-root MuiButton-text\" style=\"color:#fff\" type=\"submit\">Log out</button></form>")
		}
		w.raw("</header><main class=\"MuiContainer-root\"><h4 class=\"MuiTypography-h4\">")
		w.text(p.Title)
		w.raw("</h4>")
		if p.Notice != nil {
			w.render(ctx, s.Toast(p.Notice.Message, p.Notice.Kind))
		} else {
			w.raw(`<div id="` + ToastID + `"></div>`)
		}
		w.render(ctx, p.Body...)
		w.raw("</main></body></html>")
	})
}

func (muiSkin) Card(title string, body ...templ.Component) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<div class=\"MuiPaper-root MuiCard-root\"><div class=\"MuiCardContent-root\">")
		if title != "" {
			w.raw("<h6 class=\"MuiTypography-h6\">")
			w.text(title)
			w.raw("</h6>")
		}
		w.render(ctx, body...)
		w.raw("</div></div>")
	})
}

func (muiSkin) TextField(f Field) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<div class=\"MuiFormControl-root MuiTextField-root\"><label class=\"MuiInputLabel-root\"")
		w.attr("for", f.Name)
		w.raw(">")
		w.text(f.Label)
		w.raw("</label>")
		fieldInput(w, f, "MuiInputBase-input MuiOutlinedInput-input")
		if f.Error != "" {
			w.raw("<p class=\"MuiFormHelperText-root Mui-error\">")
			w.text(f.Error)
			w.raw("</p>")
		}
		w.raw("</div>")
	})
}

func (muiSkin) SelectField(f Field, options []Option) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<div class=\"MuiFormControl-root\">")
		if f.Label != "" {
			w.raw("<label class=\"MuiInputLabel-root\"")
			w.attr("for", f.Name)
			w.raw(">")
			w.text(f.Label)
			w.raw("</label>")
		}
		fieldSelect(w, f, options, "MuiSelect-select MuiInputBase-input")
		w.raw("</div>")
	})
}

func (muiSkin) SubmitButton(label string, disabled bool) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<button type=\"submit\"")
		if disabled {
			w.raw(" class=\"MuiButton-root MuiButton-contained Mui-disabled\" disabled")
		} else {
			w.raw(" class=\"MuiButton-root MuiButton-contained\"")
		}
		w.raw(">")
		w.text(label)
		w.raw("</button>")
	})
}

func (muiSkin) GuardedSubmit(label, disabledWhen string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		guardedButton(w, label, disabledWhen, "MuiButton-root MuiButton-contained")
	})
}

func (muiSkin) Table(id string, headers []string, rows [][]templ.Component) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<div class=\"MuiTableContainer-root\"")
		w.attr("id", id)
		w.raw(">")
		if len(rows) == 0 {
			w.raw("<p class=\"MuiTypography-body2\">Nothing here yet.</p></div>")
			return
		}
		w.raw("<table class=\"MuiTable-root\"><thead class=\"MuiTableHead-root\"><tr class=\"MuiTableRow-root\">")
		for _, h := range headers {
			w.raw("<th class=\"MuiTableCell-root MuiTableCell-head\">")
			w.text(h)
			w.raw("</th>")
		}
		w.raw("</tr></thead><tbody class=\"MuiTableBody-root\">")
		for _, row := range rows {
			w.raw("<tr class=\"MuiTableRow-root\">")
			for _, cell := range row {
				w.raw("<td class=\"MuiTableCell-root MuiTableCell-body\">")
				w.render(ctx, cell)
				w.raw("</td>")
			}
			w.raw("</tr>")
		}
		w.raw("</tbody></table></div>")
	})
}

func (muiSkin) Toast(message string, kind ToastKind) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		variant := "MuiAlert-standardSuccess"
		if kind == ToastError {
			variant = "MuiAlert-standardError"
		}
		w.raw(`<div id="`+ToastID+`" role="alert" class="MuiPaper-root MuiAlert-root `, variant, `">`)
		w.text(message)
		w.raw("</div>")
	})
}

func (muiSkin) ConfirmDialog(d Dialog) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		open := dialogOpenSignal(d)
		w.raw("<div")
		w.attr("id", d.ID)
		w.attr("data-signals", "{"+open+": false}")
		w.raw("><button type=\"button\" class=\"MuiButton-root MuiButton-containedError\"")
		w.attr("data-on:click", "$"+open+" = true")
		w.raw(">")
		w.text(d.TriggerLabel)
		w.raw("</button><div class=\"MuiDialog-root\" role=\"dialog\"")
		w.attr("data-show", "$"+open)
		w.raw(" style=\"display:none\"><div class=\"MuiDialog-paper\"><h2 class=\"MuiDialogTitle-root MuiTypography-h6\">")
		w.text(d.Title)
		w.raw("</h2><div class=\"MuiDialogContent-root\"><p>")
		w.text(d.Message)
		w.raw("</p></div><div class=\"MuiDialogActions-root\">")
		dialogBody(w, d, "MuiButton-root MuiButton-containedError", "MuiButton-root MuiButton-text")
		w.raw("</div></div></div></div>")
	})
}
