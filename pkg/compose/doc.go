// Package compose runs a tree of memoized components.
//
// Each position in the tree is a CallSite. The component rendered at a
// site receives a *Render, through which it declares children and hooks:
//
//	func PostList(r *compose.Render, props PostListProps) (*vdom.VNode, error) {
//	    sorted := compose.UseMemo(r, func() []Post {
//	        return SortPosts(props.Posts, props.SortBy)
//	    }, props.Posts, props.SortBy)
//
//	    items := make([]*vdom.VNode, 0, len(sorted))
//	    for _, p := range sorted {
//	        item, err := compose.Child(r, p.ID, PostItem, PostProps{Post: p})
//	        if err != nil {
//	            return nil, err
//	        }
//	        items = append(items, item)
//	    }
//	    return vdom.Ul(items), nil
//	}
//
// # Update Cycles
//
// A Scheduler owns the tree. A State change at a site schedules an update
// cycle that re-renders the site. The new props a render passes to Child
// are compared with the child's previous props; when they compare equal
// and the child has no state change of its own, the child and its whole
// subtree are skipped. Re-rendering therefore stops at the first unchanged
// boundary along each path.
//
// Changes from timers and other goroutines are queued, and each becomes its
// own cycle. Cycles never overlap. After a successful cycle the scheduler
// publishes the resolved view; a cycle that fails publishes nothing, keeps
// the previous view, and leaves the failed sites dirty for the next cycle.
//
// # Hooks
//
// UseState, UseMemo, UseMemoErr, UseCallback and OnCleanup keep their state
// in slots of the call site, matched by call order. With memo.DebugMode set
// the order is validated on every render.
//
// Sibling render order follows the order of Child calls but is not part of
// the contract; components must not rely on it.
package compose
