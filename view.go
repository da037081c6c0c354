package ssp

// ModuleView is the read-only projection of one module for renderers.
type ModuleView struct {
	Network      string
	DisplayName  string
	ClassName    string
	ButtonClass  string
	State        State
	Safe         bool
	Markup       string
	DummyGraphic string
	DummyAlt     string
	InfoText     string
	SwitchText   string
	InfoVisible  bool
	// PermaEligible modules get a checkbox in the settings menu.
	PermaEligible bool
	PermaChecked  bool
}

// View is everything a renderer needs to draw a widget. Renderers derive
// classes from it and never feed markup state back into the engine.
type View struct {
	WidgetID string
	Layout   Layout
	URI      string
	Modules  []ModuleView

	// ShowSettings is set when at least one gated module exists.
	ShowSettings bool
	// ShowPermaMenu is set when perma-options are on, a module is eligible
	// and a store is configured.
	ShowPermaMenu   bool
	SettingsVisible bool

	InfoLink       string
	InfoLinkTarget string
	TxtHelp        string
	TxtSettings    string
	SettingsPerma  string
}

// Snapshot returns the current view in module order.
func (w *Widget) Snapshot() (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mountedLocked(""); err != nil {
		return View{}, err
	}

	view := View{
		WidgetID:        w.id,
		Layout:          w.cfg.Layout,
		URI:             w.uri,
		Modules:         make([]ModuleView, 0, len(w.order)),
		SettingsVisible: w.hover.visible(SettingsRegion),
		InfoLink:        w.cfg.InfoLink,
		InfoLinkTarget:  w.cfg.InfoLinkTarget,
		TxtHelp:         w.cfg.TxtHelp,
		TxtSettings:     w.cfg.TxtSettings,
		SettingsPerma:   w.cfg.SettingsPerma,
	}
	for _, name := range w.order {
		inst := w.modules[name]
		module := inst.module
		cfg := module.Config()
		mv := ModuleView{
			Network:       name,
			DisplayName:   module.DisplayName(),
			ClassName:     cfg.Class(name),
			ButtonClass:   cfg.Button(name),
			State:         inst.state,
			Safe:          module.Safe(),
			Markup:        inst.markup,
			DummyGraphic:  module.DummyGraphic(w.cfg.Layout),
			DummyAlt:      module.DummyAlt(),
			InfoText:      module.InfoText(),
			SwitchText:    module.SwitchText(inst.state == StateOff),
			InfoVisible:   w.hover.visible(InfoRegion(name)),
			PermaEligible: w.cfg.PermaOption && module.PermaEligible(),
			PermaChecked:  inst.permaChecked,
		}
		if !mv.Safe {
			view.ShowSettings = true
		}
		if mv.PermaEligible && w.perma.available() {
			view.ShowPermaMenu = true
		}
		view.Modules = append(view.Modules, mv)
	}
	return view, nil
}
