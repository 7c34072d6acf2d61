// Package g15desktop is a toolkit-agnostic base for Gnome15 desktop
// components, such as tray icons, indicators, and panel applets. It mirrors
// the state of the Gnome15 desktop service, exposed on the D-Bus session bus
// as org.gnome15.Gnome15, and lets the user control it.
//
// # Usage
//
// A desktop component consists of [Component] and an [Adapter]:
//   - [Component] connects to the service, keeps a local copy of its
//     screens, pages, and attention messages, and keeps it up to date by
//     listening to service signals. It reconnects whenever the service
//     appears on the bus.
//   - [Adapter] is implemented by the concrete desktop component. It is
//     notified whenever what it displays should be rebuilt, and reads the
//     current state through [Component.Screens] and
//     [Component.CheckAttention].
//
// In addition, [Component] watches the shared desktop component settings
// (see [Settings]) and the icon theme, and starts the configuration user
// interface and the service on behalf of the user (see [Launcher]).
package g15desktop
