package scrapybara

import "strings"

// keyNames maps the key names agents emit to the xdotool names the provider
// expects.
var keyNames = map[string]string{
	"enter":      "Return",
	"return":     "Return",
	"esc":        "Escape",
	"escape":     "Escape",
	"tab":        "Tab",
	"space":      "space",
	"backspace":  "BackSpace",
	"delete":     "Delete",
	"del":        "Delete",
	"insert":     "Insert",
	"home":       "Home",
	"end":        "End",
	"pageup":     "Page_Up",
	"pagedown":   "Page_Down",
	"up":         "Up",
	"down":       "Down",
	"left":       "Left",
	"right":      "Right",
	"arrowup":    "Up",
	"arrowdown":  "Down",
	"arrowleft":  "Left",
	"arrowright": "Right",
	"ctrl":       "ctrl",
	"control":    "ctrl",
	"alt":        "alt",
	"option":     "alt",
	"shift":      "shift",
	"cmd":        "super",
	"command":    "super",
	"meta":       "super",
	"super":      "super",
	"win":        "super",
	"capslock":   "Caps_Lock",
	"f1":         "F1",
	"f2":         "F2",
	"f3":         "F3",
	"f4":         "F4",
	"f5":         "F5",
	"f6":         "F6",
	"f7":         "F7",
	"f8":         "F8",
	"f9":         "F9",
	"f10":        "F10",
	"f11":        "F11",
	"f12":        "F12",
	"/":          "slash",
	"\\":         "backslash",
}

// mapKeys translates agent key names. Unknown names pass through unchanged.
func mapKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if mapped, ok := keyNames[strings.ToLower(strings.TrimSpace(k))]; ok {
			out = append(out, mapped)
			continue
		}
		out = append(out, k)
	}
	return out
}
