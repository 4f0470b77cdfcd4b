// Package cache provides exact and embedding-keyed caching for the Beluga AI
// framework. It defines the Cache interface for key-value storage with TTL
// support, a registry for pluggable cache backends, and a SemanticCache
// wrapper that keys entries by their embedding vector.
//
// # Cache Interface
//
// The Cache interface provides four operations:
//
//   - Get retrieves a value by key, returning (value, found, error).
//   - Set stores a value with a key and TTL.
//   - Delete removes a key from the cache.
//   - Clear removes all entries.
//
// # Registry
//
// Cache backends register via the standard Beluga registry pattern. Import a
// provider package for side-effect registration, then create instances via New.
//
// # SemanticCache
//
// SemanticCache wraps any Cache and stores values under a hash of their
// embedding vector. A lookup finds an entry only when the query embedding
// is identical to the stored one; vectors are not compared by cosine
// similarity, and the threshold given when creating the wrapper does not
// affect lookups.
//
// # Usage
//
// Exact caching with the in-memory provider:
//
//	import _ "github.com/Hurricane0017/agri-advisor/cache/providers/inmemory"
//
//	c, err := cache.New("inmemory", cache.Config{
//	    TTL:     5 * time.Minute,
//	    MaxSize: 1000,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = c.Set(ctx, "key", "value", 10*time.Minute)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	val, ok, err := c.Get(ctx, "key")
//
// Semantic caching:
//
//	sc := cache.NewSemanticCache(c, 0.95)
//	err = sc.SetSemantic(ctx, embedding, cachedResponse)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	val, ok, err = sc.GetSemantic(ctx, embedding, 0)
package cache
