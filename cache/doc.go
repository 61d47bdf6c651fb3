// Package cache provides the storage contracts, key composition and value
// encoding used by the query cache engine.
//
// # Overview
//
// This package exports three building blocks and their default implementations:
//
//   - Store: a string keyed store with per entry TTL, optionally a
//     KeyEnumerator so entries can be found by substring
//   - KeyComposer: builds "[namespace:]entity:operation@hash" keys from a
//     canonical encoding of the call arguments
//   - Codec: turns result trees into a JSON envelope that keeps 64 bit
//     integers, big integers, decimals, dates and byte slices intact
//
// # Stores
//
// Three stores are available out of the box:
//
//	memory, err := cache.NewMemoryStore(cache.DefaultConfig()) // sturdyc
//	local := cache.NewLocalStore(5*time.Minute, time.Minute)  // go-cache
//	remote, err := cache.NewRedisStore(cache.RedisConfig{Client: redisClient})
//
// All of them implement KeyEnumerator. Any other implementation of Store can
// be handed to the engine; without enumeration, invalidation relies on the
// keys the engine recorded itself.
//
// # Keys
//
// Equal payloads produce equal keys regardless of map order, pointer
// indirection or numeric representation (5 and 5.0 hash alike):
//
//	keys := cache.NewDefaultKeyComposer()
//	key := keys.Compose("user", "findUnique", "", map[string]any{"where": map[string]any{"id": 1}})
//	// user:findUnique@<md5 of the canonical json>
//
// MD5Hasher is the default; NewKeyComposer(XXHasher{}) trades the digest
// format for speed. Only the arguments are hashed, so keys stay greppable by
// entity and operation, which is what KeyMentions relies on.
//
// # Encoding
//
// Cached values are envelopes of the form {"data": ...}. Leaves that JSON
// cannot carry exactly are written as strings tagged with a prefix from
// TypePrefixes and restored on Decode. Decoded trees contain maps, slices
// and scalars; use Convert to get a concrete type back:
//
//	codec := cache.NewCodec(cache.DefaultTypePrefixes())
//	s, _ := codec.Encode(user)
//	v, _ := codec.Decode(s)
//	u, err := cache.Convert[User](v)
package cache
