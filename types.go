package ssp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-socialshare/layering"
)

// Layout selects the dummy graphic set and the widget orientation.
type Layout string

const (
	// LayoutLine renders buttons side by side (~120x20 dummies).
	LayoutLine Layout = "line"
	// LayoutBox renders stacked counters (~58x62 dummies).
	LayoutBox Layout = "box"
)

// PrivacySafe marks a network that performs no third-party call before
// consent. Any other privacy value is gated behind the two-click switch.
const PrivacySafe = "safe"

// State is the activation state of one module instance.
type State int

const (
	// StateOff shows the dummy graphic; nothing has been sent to the network.
	StateOff State = iota
	// StateOn shows the live embed.
	StateOn
)

func (s State) String() string {
	switch s {
	case StateOn:
		return "on"
	default:
		return "off"
	}
}

// Values is an untyped settings tree as supplied by callers.
type Values map[string]any

// Expression is a caller-supplied value computed by the restricted evaluator
// before merging.
type Expression string

// DeriveFunc computes a caller-supplied value before merging. It runs exactly
// once per resolve pass.
type DeriveFunc func(ctx DeriveContext) (any, error)

// DeriveContext is what derived values may look at.
type DeriveContext struct {
	Element map[string]any
	Setting func(path string) (any, bool)
}

// Page describes the document that hosts a widget.
type Page struct {
	URL         string `json:"url,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	// EmbedHint is a page-level embed URL hint (e.g. a meta tag). Modules
	// fall back to it only when their embed_url template cannot resolve.
	EmbedHint string `json:"embed_hint,omitempty"`
}

// Host is the element a widget mounts into.
type Host struct {
	ID         string
	Lang       string
	Attributes map[string]string
	Page       Page
}

const (
	// AttributePrefix marks declarative settings on a host element.
	AttributePrefix = "data-"
	// MarkerAttribute opts a host element into auto mounting.
	MarkerAttribute = "data-social-share-privacy"
	// InitializedAttribute is set once a host has been mounted.
	InitializedAttribute = "data-init"
)

// Initialized reports whether the host has already been mounted.
func (h *Host) Initialized() bool {
	if h == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(h.Attributes[InitializedAttribute]), "true")
}

// Marked reports whether the host carries the opt-in marker attribute.
func (h *Host) Marked() bool {
	if h == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(h.Attributes[MarkerAttribute]), "true")
}

func (h *Host) markInitialized() {
	if h.Attributes == nil {
		h.Attributes = map[string]string{}
	}
	h.Attributes[InitializedAttribute] = "true"
}

func (h *Host) binding() map[string]any {
	if h == nil {
		return map[string]any{}
	}
	attrs := make(map[string]any, len(h.Attributes))
	for key, value := range h.Attributes {
		attrs[key] = value
	}
	return map[string]any{
		"id":         h.ID,
		"lang":       h.Lang,
		"attributes": attrs,
		"page": map[string]any{
			"url":         h.Page.URL,
			"canonical":   h.Page.Canonical,
			"title":       h.Page.Title,
			"description": h.Page.Description,
			"image":       h.Page.Image,
		},
	}
}

// CookiePolicy controls how perma-options are persisted.
type CookiePolicy struct {
	Path        string
	Domain      string
	ExpiresDays float64
}

// Config is the resolved configuration of one widget instance.
type Config struct {
	Layout         Layout                  `json:"layout"`
	CSSPath        string                  `json:"css_path"`
	PathPrefix     string                  `json:"path_prefix"`
	Language       string                  `json:"language"`
	CookiePath     string                  `json:"cookie_path"`
	CookieDomain   string                  `json:"cookie_domain"`
	CookieExpires  float64                 `json:"cookie_expires"`
	PermaOption    bool                    `json:"perma_option"`
	IgnoreFragment bool                    `json:"ignore_fragment"`
	Order          []string                `json:"order,omitempty"`
	Services       map[string]ModuleConfig `json:"services"`
	URI            string                  `json:"uri,omitempty"`
	InfoLink       string                  `json:"info_link"`
	InfoLinkTarget string                  `json:"info_link_target"`
	TxtHelp        string                  `json:"txt_help"`
	TxtSettings    string                  `json:"txt_settings"`
	SettingsPerma  string                  `json:"settings_perma"`

	SetPermaOption  string `json:"set_perma_option,omitempty"`
	DelPermaOption  string `json:"del_perma_option,omitempty"`
	GetPermaOption  string `json:"get_perma_option,omitempty"`
	GetPermaOptions string `json:"get_perma_options,omitempty"`
}

// ModuleConfig is the per-network configuration record.
type ModuleConfig struct {
	Status        bool    `json:"status"`
	Privacy       string  `json:"privacy,omitempty"`
	ClassName     string  `json:"class_name,omitempty"`
	ButtonClass   string  `json:"button_class,omitempty"`
	DummyLineImg  string  `json:"dummy_line_img,omitempty"`
	DummyBoxImg   string  `json:"dummy_box_img,omitempty"`
	DummyAlt      string  `json:"dummy_alt,omitempty"`
	TxtInfo       string  `json:"txt_info,omitempty"`
	TxtOff        string  `json:"txt_off,omitempty"`
	TxtOn         string  `json:"txt_on,omitempty"`
	DisplayName   string  `json:"display_name,omitempty"`
	PermaOption   bool    `json:"perma_option"`
	ReferrerTrack string  `json:"referrer_track,omitempty"`
	Language      string  `json:"language,omitempty"`
	PathPrefix    string  `json:"path_prefix,omitempty"`
	EmbedURL      string  `json:"embed_url,omitempty"`
	EmbedKind     string  `json:"embed_kind,omitempty"`
	Text          string  `json:"text,omitempty"`
	Width         float64 `json:"width,omitempty"`
	Height        float64 `json:"height,omitempty"`
}

// Safe reports whether the module bypasses two-click gating.
func (m ModuleConfig) Safe() bool {
	return m.Privacy == PrivacySafe
}

// Class returns the CSS class used for the module container.
func (m ModuleConfig) Class(name string) string {
	if m.ClassName != "" {
		return m.ClassName
	}
	return name
}

// Button returns the CSS class used for the button element.
func (m ModuleConfig) Button(name string) string {
	if m.ButtonClass != "" {
		return m.ButtonClass
	}
	return name
}

// CookiePolicy returns the persistence policy derived from the settings.
func (c Config) CookiePolicy() CookiePolicy {
	return CookiePolicy{
		Path:        c.CookiePath,
		Domain:      c.CookieDomain,
		ExpiresDays: c.CookieExpires,
	}
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	return layering.Clone(c)
}

// ServiceNames returns the configured network names in ascending order.
func (c Config) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks values that cannot be expressed by the type system.
func (c Config) Validate() error {
	switch c.Layout {
	case LayoutLine, LayoutBox:
	default:
		return &ConfigurationError{Field: "layout", Reason: fmt.Sprintf("unsupported layout %q", c.Layout)}
	}
	if c.CookieExpires < 0 {
		return &ConfigurationError{Field: "cookie_expires", Reason: "must be non-negative"}
	}
	for _, name := range c.Order {
		if strings.TrimSpace(name) == "" {
			return &ConfigurationError{Field: "order", Reason: "contains an empty network name"}
		}
	}
	return nil
}
