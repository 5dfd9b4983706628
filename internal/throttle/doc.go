// Package throttle provides a TTL-based limiter used to rate-limit
// transient signals such as typing indicators within a configurable window.
package throttle
