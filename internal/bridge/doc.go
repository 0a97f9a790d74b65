// Package bridge implements the asynchronous RPC abstraction over the
// target context's synchronous evaluation primitive.
//
// The adapter normalizes the two host calling conventions into one
// contract; the dispatcher wraps generated code so the target records
// its progress in a uniquely named scratch slot, then polls that slot
// until it observes a terminal status; the stager moves oversized
// payloads across in bounded chunks so no single generated code string
// embeds the whole payload as a literal.
package bridge
