package g15desktop

// Adapter is implemented by concrete desktop components, such as tray icons,
// indicators, and panel applets. [Component] notifies the adapter about
// changes; it never uses anything the adapter does for its own control flow.
//
// Hooks are never called while the component holds its lock, so they may
// freely read [Component.Screens] and friends.
type Adapter interface {
	// Initialise is called once when the component is created, before any
	// bus interaction. It should create the initial desktop component.
	Initialise()

	// Rebuild is called every time the list of screens, pages, or attention
	// messages changes in some way. The desktop component should recompute
	// everything it displays from the current state of the component, and
	// usually calls [Component.CheckAttention].
	Rebuild()

	// ClearAttention clears any "attention" state indicators.
	ClearAttention()

	// Attention displays an "attention" state indicator with message. The
	// message may be empty.
	Attention(message string)

	// IconsChanged is called once at start up, and then whenever the desktop
	// icon theme changes.
	IconsChanged()

	// OptionsChanged is called when global desktop component options change.
	OptionsChanged()
}
