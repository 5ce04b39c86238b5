// Package session owns the table of live sessions.
//
// A Session pairs one remote computer handle with its transcript. The
// Registry creates sessions (launch, settle, stream discovery, start URL),
// hands them out by id, and tears them down, releasing each handle at most
// once.
//
// All work against one session goes through Session.Use, which holds a
// per-session lock. Different sessions never share a lock, so a slow turn on
// one session does not block another.
//
// Example Usage:
//
//	reg := session.NewRegistry(launcher, resolver, session.Config{
//		DefaultStartURL: "https://bing.com",
//		CallTimeout:     time.Minute,
//	}, logger, metrics)
//	s, _, err := reg.Create(ctx, computer.Browser, session.Options{})
//	err = s.Use("screenshot", func(h session.Handle) error { ... })
//	err = reg.Delete(ctx, s.ID)
package session
