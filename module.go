package ssp

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
)

// Embed kinds understood by the default registry.
const (
	EmbedIframe = "iframe"
	EmbedLink   = "link"
)

// nbsp keeps an empty switch label from collapsing to zero width.
const nbsp = "\u00a0"

// Module is the read-only capability set of one network integration.
type Module interface {
	Name() string
	Enabled() bool
	Safe() bool
	InfoText() string
	// SwitchText is the label of the off/on control. It is never empty.
	SwitchText(showingPrivate bool) string
	DummyGraphic(layout Layout) string
	DummyAlt() string
	DisplayName() string
	PermaEligible() bool
	Config() ModuleConfig
	// EmbedMarkup builds the live content. It fails with
	// *MissingEmbedSourceError when no source can be resolved.
	EmbedMarkup(uri string, page Page) (string, error)
}

type baseModule struct {
	name string
	cfg  ModuleConfig
}

func (m baseModule) Name() string         { return m.name }
func (m baseModule) Enabled() bool        { return m.cfg.Status }
func (m baseModule) Safe() bool           { return m.cfg.Safe() }
func (m baseModule) InfoText() string     { return m.cfg.TxtInfo }
func (m baseModule) DummyAlt() string     { return m.cfg.DummyAlt }
func (m baseModule) PermaEligible() bool  { return m.cfg.PermaOption && !m.cfg.Safe() }
func (m baseModule) Config() ModuleConfig { return m.cfg }

func (m baseModule) DisplayName() string {
	if m.cfg.DisplayName != "" {
		return m.cfg.DisplayName
	}
	return m.name
}

func (m baseModule) SwitchText(showingPrivate bool) string {
	text := m.cfg.TxtOn
	if showingPrivate {
		text = m.cfg.TxtOff
	}
	if strings.TrimSpace(text) == "" {
		return nbsp
	}
	return text
}

func (m baseModule) DummyGraphic(layout Layout) string {
	img := m.cfg.DummyLineImg
	if layout == LayoutBox && m.cfg.DummyBoxImg != "" {
		img = m.cfg.DummyBoxImg
	}
	if img == "" {
		img = m.cfg.DummyBoxImg
	}
	if img == "" {
		return ""
	}
	return m.cfg.PathPrefix + img
}

// source resolves the embed address from the module's template. The page
// level hint is used only when the template cannot resolve.
func (m baseModule) source(uri string, page Page) (string, error) {
	hint := strings.TrimSpace(page.EmbedHint)
	reason := ""
	switch {
	case m.cfg.EmbedURL == "":
		reason = "no embed_url template"
	case strings.Contains(m.cfg.EmbedURL, "{uri}") && strings.TrimSpace(uri) == "":
		reason = "no uri to share"
	default:
		return expandEmbedURL(m.cfg, uri, page), nil
	}
	if hint != "" {
		return hint, nil
	}
	return "", &MissingEmbedSourceError{Network: m.name, Reason: reason}
}

func expandEmbedURL(cfg ModuleConfig, uri string, page Page) string {
	text := cfg.Text
	if text == "" {
		text = page.Title
	}
	replacer := strings.NewReplacer(
		"{uri}", url.QueryEscape(uri+cfg.ReferrerTrack),
		"{referrer_track}", url.QueryEscape(cfg.ReferrerTrack),
		"{lang}", url.QueryEscape(cfg.Language),
		"{text}", url.QueryEscape(text),
		"{title}", url.QueryEscape(page.Title),
		"{description}", url.QueryEscape(page.Description),
		"{image}", url.QueryEscape(page.Image),
	)
	return replacer.Replace(cfg.EmbedURL)
}

// iframeModule renders third-party widgets inside an iframe. It is the gated
// variant.
type iframeModule struct {
	baseModule
}

func (m iframeModule) EmbedMarkup(uri string, page Page) (string, error) {
	src, err := m.source(uri, page)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(`<iframe src="`)
	b.WriteString(html.EscapeString(src))
	b.WriteString(`" scrolling="no" frameborder="0" allowtransparency="true"`)
	if style := frameStyle(m.cfg); style != "" {
		b.WriteString(` style="`)
		b.WriteString(style)
		b.WriteString(`"`)
	}
	b.WriteString(`></iframe>`)
	return b.String(), nil
}

func frameStyle(cfg ModuleConfig) string {
	parts := []string{"border:none", "overflow:hidden"}
	if cfg.Width > 0 {
		parts = append(parts, "width:"+strconv.FormatFloat(cfg.Width, 'f', -1, 64)+"px")
	}
	if cfg.Height > 0 {
		parts = append(parts, "height:"+strconv.FormatFloat(cfg.Height, 'f', -1, 64)+"px")
	}
	return strings.Join(parts, ";")
}

// linkModule renders a plain anchor. Nothing is loaded until the visitor
// follows it.
type linkModule struct {
	baseModule
}

func (m linkModule) EmbedMarkup(uri string, page Page) (string, error) {
	href, err := m.source(uri, page)
	if err != nil {
		return "", err
	}
	label := html.EscapeString(m.DisplayName())
	return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener noreferrer" title="%s">%s</a>`,
		html.EscapeString(href), label, label), nil
}
