// Package host exposes the target context's evaluation primitive under
// the two calling conventions real hosts exhibit: completion callbacks
// and promise-style channels. The bridge adapter consumes either shape
// without knowing in advance which one it will be handed.
package host
