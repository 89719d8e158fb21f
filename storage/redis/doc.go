// Package redis keeps positive-interaction history in Redis so several
// engine processes can share it. Each profile owns three keys: a set of
// recorded candidate IDs, a counter, and a capped list of CBOR-encoded
// candidate vectors, newest first.
package redis
