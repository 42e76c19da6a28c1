// Package rate throttles failed logins with Redis fixed-window counters.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of a window. Key prefixes:
//   - tg:rl:u:  failed logins per username
//   - tg:rl:ip:  failed logins per client IP
//
// # What this package must NOT do
//
//   - Decide whether a login succeeded (the caller reports failures).
//   - Be imported outside the tokengate module.
package rate
