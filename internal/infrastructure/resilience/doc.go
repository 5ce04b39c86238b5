/*
Package resilience provides the circuit breaker that guards calls to the
computer provider and the agent model API.

# Overview

When a remote dependency starts failing, the breaker opens and rejects calls
immediately instead of letting every request wait for a timeout. After a
cool-down it lets a few trial calls through and closes again once they
succeed.

# Usage

	breaker := resilience.New("scrapybara", resilience.Settings{
		Failures: 5,
		Cooldown: 30 * time.Second,
		Trials:   3,
	})

	resp, err := resilience.Call(breaker, func() (*resty.Response, error) {
		return req.Post("/start")
	})

# States

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[trials pass]-> Closed
	                                            |
	                                        [failure]
	                                            |
	                                            v
	                                           Open
*/
package resilience
