// Package computer models the remote machines a session drives.
//
// A Computer is a handle obtained from a Launcher. Every handle supports
// screenshots and typed Actions; optional capabilities (current URL, stream
// URL discovery, attribute listing) are separate small interfaces that
// adapters implement when their provider offers them.
//
// Actions:
//   - Desktop: click, double_click, type, scroll, move, keypress, drag, wait, screenshot
//   - Browser: the desktop set plus goto, back, forward
//
// Example Usage:
//
//	action, err := computer.DecodeAction("click", map[string]any{"x": 10, "y": 20})
//	if err != nil {
//		return err
//	}
//	err = c.Do(ctx, action)
package computer
