package ssp

const (
	defaultInfoLink      = "http://panzi.github.io/SocialSharePrivacy/"
	defaultTxtHelp       = "If you activate these fields via click, data will be sent to a third party (Facebook, Twitter, Google, ...) and stored there. For more details click <em>i</em>."
	defaultTxtSettings   = "Settings"
	defaultSettingsPerma = "Permanently enable share buttons:"
)

// DefaultConfig returns the library defaults. Every call returns a fresh
// value; there is no shared mutable defaults object. Services are empty, see
// the network package for built-in descriptors.
func DefaultConfig() Config {
	return Config{
		Layout:         LayoutLine,
		CSSPath:        "stylesheets/socialshareprivacy.css",
		Language:       "en",
		CookiePath:     "/",
		CookieExpires:  365,
		PermaOption:    true,
		IgnoreFragment: true,
		Services:       map[string]ModuleConfig{},
		InfoLink:       defaultInfoLink,
		TxtHelp:        defaultTxtHelp,
		TxtSettings:    defaultTxtSettings,
		SettingsPerma:  defaultSettingsPerma,
	}
}
