// Package memo provides the memoization primitives used by the composition
// engine: a single-slot cell and the three caches built on it.
//
// Every cache here is a thin wrapper around Cell, which stores the last
// input snapshot together with the last result and decides, through a
// Comparator, whether a new call may reuse that result.
//
// # Core Types
//
// ComponentCache[P, V] skips a render function when its props are unchanged:
//
//	post := memo.NewComponentCache(renderPost,
//	    memo.WithComparator(memo.ShallowFields[PostProps]("Post")))
//	view, err := post.Invoke(props)
//
// CallbackCache[F] keeps a function value stable while its dependencies
// are unchanged:
//
//	onLike := memo.NewCallbackCache(func() func(int) { return like })
//	fn := onLike.Invoke(userID)
//
// ValueCache[R] caches an expensive pure computation:
//
//	sorted := memo.NewValueCache(memo.Pure(func() []Post { return sortPosts(posts) }))
//	v, err := sorted.Invoke(posts, sortKey)
//
// # Comparison
//
// Dependency lists and props are compared shallowly. Comparable values use ==,
// reference kinds (slices, maps, pointers, channels, functions) compare by
// identity. Nothing recurses into nested structures; callers that need deep
// semantics supply a Custom comparator.
//
// # Dependency Lists
//
// Dependency lists must list every value the producer reads, in the same
// order on every call. A list whose length changes between calls fails with
// ErrDepsLength. Go closures cannot be inspected for captured variables, so
// a closure that reads a value missing from its dependency list will observe
// stale state. That obligation stays with the caller.
//
// # Thread Safety
//
// Cells and caches are not safe for concurrent use. The compose package
// serializes all evaluation through its scheduler.
package memo
