// Package render converts VNode trees into HTML.
//
// It is used to show the view published by a composition scheduler: by the
// CLI when printing a demo run, and by the inspector's index page.
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{Pretty: true})
//	html, err := renderer.RenderToString(node)
//
// Component placeholders are rendered through their Render method, so an
// unresolved tree renders the components' current views.
package render
