// Package network holds the built-in network descriptors.
//
// Every descriptor is disabled. Callers switch networks on through caller
// options or host attributes, e.g. data-services.twitter.status="true".
package network

import (
	"sort"

	ssp "github.com/goliatone/go-socialshare"
)

const (
	Facebook  = "facebook"
	Twitter   = "twitter"
	Buffer    = "buffer"
	LinkedIn  = "linkedin"
	Pinterest = "pinterest"
	Reddit    = "reddit"
	Xing      = "xing"
	Mail      = "mail"
)

func gated(name, display, embed string, width, height float64) ssp.ModuleConfig {
	return ssp.ModuleConfig{
		Privacy:      "unsafe",
		DummyLineImg: "images/dummy_" + name + ".png",
		DummyBoxImg:  "images/dummy_box_" + name + ".png",
		DummyAlt:     `"` + display + `"-Dummy`,
		TxtInfo: "Two clicks for more privacy: The " + display + " button will be enabled once you click here. " +
			"Activating the button already sends data to " + display + " &ndash; see <em>i</em>.",
		TxtOff:      "not connected to " + display,
		TxtOn:       "connected to " + display,
		DisplayName: display,
		PermaOption: true,
		EmbedURL:    embed,
		EmbedKind:   ssp.EmbedIframe,
		Width:       width,
		Height:      height,
	}
}

// Services returns fresh copies of the built-in descriptors.
func Services() map[string]ssp.ModuleConfig {
	return map[string]ssp.ModuleConfig{
		Facebook: gated(Facebook, "Facebook",
			"https://www.facebook.com/plugins/like.php?locale={lang}&href={uri}&width=120&layout=button_count&action=like&show_faces=false&share=false&height=21",
			120, 21),
		Twitter: gated(Twitter, "Twitter",
			"https://platform.twitter.com/widgets/tweet_button.html?url={uri}&counturl={uri}&text={text}&count=horizontal&lang={lang}",
			120, 20),
		Buffer: gated(Buffer, "Buffer",
			"https://widgets.bufferapp.com/button/?count=horizontal&url={uri}&text={text}",
			110, 20),
		LinkedIn: gated(LinkedIn, "LinkedIn",
			"https://www.linkedin.com/shareArticle?mini=true&url={uri}&title={title}",
			100, 20),
		Pinterest: gated(Pinterest, "Pinterest",
			"https://assets.pinterest.com/ext/embed.html?url={uri}&media={image}&description={description}",
			75, 20),
		Reddit: gated(Reddit, "Reddit",
			"https://www.reddit.com/static/button/button1.html?url={uri}&title={title}",
			120, 20),
		Xing: gated(Xing, "XING",
			"https://www.xing-share.com/app/share?op=share;sc_p=xing-share;url={uri}",
			120, 20),
		Mail: {
			Privacy:     ssp.PrivacySafe,
			DummyAlt:    "E-Mail",
			TxtInfo:     "Send this page by e-mail.",
			DisplayName: "E-Mail",
			EmbedURL:    "mailto:?subject={title}&body={uri}",
			EmbedKind:   ssp.EmbedLink,
		},
	}
}

// Names lists the built-in networks in ascending order.
func Names() []string {
	services := Services()
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns the library defaults with every built-in network
// registered.
func Defaults() ssp.Config {
	cfg := ssp.DefaultConfig()
	cfg.Services = Services()
	return cfg
}
