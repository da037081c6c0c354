// Package render projects a widget view into the social_share_privacy_area
// markup. It only reads engine state; classes such as "switch on" are derived
// from module state and never parsed back.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	ssp "github.com/goliatone/go-socialshare"
)

var widgetTemplate = template.Must(template.New("widget").Funcs(template.FuncMap{
	"switchClass": switchClass,
	"live":        live,
	"markup":      markup,
}).Parse(`<ul class="social_share_privacy_area {{.Layout}}" data-widget="{{.WidgetID}}">
{{- range .Modules}}
<li class="help_info {{.ClassName}}{{if .InfoVisible}} info_on{{end}}" data-service="{{.Network}}">
<div class="info">{{markup .InfoText}}</div>
{{- if not .Safe}}
<span class="switch {{switchClass .}}">{{.SwitchText}}</span>
{{- end}}
<div class="dummy_btn {{.ButtonClass}}">
{{- if live .}}{{markup .Markup}}{{else}}<img class="{{.ButtonClass}}_privacy_dummy privacy_dummy" src="{{.DummyGraphic}}" alt="{{.DummyAlt}}">{{end -}}
</div>
</li>
{{- end}}
{{- if .ShowSettings}}
<li class="settings_info">
<div class="settings_info_menu {{if .SettingsVisible}}on{{else}}off{{end}}{{if not .ShowPermaMenu}} perma_option_off{{end}}">
<a href="{{.InfoLink}}"{{with .InfoLinkTarget}} target="{{.}}"{{end}}><span class="help_info icon"><span class="info">{{markup .TxtHelp}}</span></span></a>
{{- if .ShowPermaMenu}}
<span class="settings">{{.TxtSettings}}</span>
<form><fieldset><legend>{{.SettingsPerma}}</legend>
{{- range .Modules}}{{if .PermaEligible}}
<label><input type="checkbox" data-service="{{.Network}}"{{if .PermaChecked}} checked="checked"{{end}}>{{.DisplayName}}</label>
{{- end}}{{end}}
</fieldset></form>
{{- end}}
</div>
</li>
{{- end}}
</ul>`))

// Widget renders view.
func Widget(view ssp.View) (template.HTML, error) {
	var buf bytes.Buffer
	if err := widgetTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render: widget %s: %w", view.WidgetID, err)
	}
	return template.HTML(buf.String()), nil
}

func switchClass(module ssp.ModuleView) string {
	if module.State == ssp.StateOn {
		return "on"
	}
	return "off"
}

func live(module ssp.ModuleView) bool {
	return module.Safe || module.State == ssp.StateOn
}

// markup marks embed markup and the configured help texts as trusted. Embeds
// escape every value they interpolate; help texts are author supplied HTML.
func markup(s string) template.HTML {
	return template.HTML(s)
}
