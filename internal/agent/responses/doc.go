// Package responses implements agent.Loop over the OpenAI Responses API with
// the computer_use_preview tool.
//
// Each step sends the whole transcript. Every computer_call in the reply is
// decoded into a computer.Action, executed, and answered with a
// computer_call_output carrying a fresh screenshot as a data URL (plus the
// page URL for browsers). Pending safety checks are acknowledged
// automatically and logged at warn level. The turn ends when a reply holds
// no computer calls or after MaxSteps requests.
package responses
