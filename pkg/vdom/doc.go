// Package vdom provides the view values produced by memoized components.
//
// A VNode is an immutable description of a piece of UI: an element, a text
// node, a fragment, or a placeholder for a nested component whose own view
// is resolved later. The composition engine never mutates a VNode after a
// render returns it, which is what makes returning a cached VNode safe.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Article(Class("post"), Key(post.ID),
//	    H2(Text(post.Title)),
//	    P(Text(post.Body)),
//	)
//
// Diffing and DOM patching are not part of this package.
package vdom
