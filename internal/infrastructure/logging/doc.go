// Package logging builds the zap root logger.
//
// Production output is JSON, development output is coloured console text.
// Components receive a *zap.Logger named after themselves (registry,
// dispatch, turn, scrapybara, ...). Request handlers add session_id and
// trace_id fields.
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	registry := session.NewRegistry(launcher, resolver, cfg, logger.Component("registry"), metrics)
package logging
