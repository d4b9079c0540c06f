// Package blog is a small blog front page built on the compose engine.
//
// Blog owns the session, the clock and the posts. PostList sorts the posts
// and renders one Post per entry. Each level is cut off separately: a clock
// tick re-renders Blog only, signing in or out re-renders Blog and PostList,
// and liking a post re-renders that post alone below the list.
package blog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Post is a blog post.
type Post struct {
	ID      string
	Title   string
	Body    string
	Likes   int
	Created time.Time
}

// SortKey selects the order of the post list.
type SortKey string

const (
	SortNewest SortKey = "newest"
	SortLikes  SortKey = "likes"
	SortTitle  SortKey = "title"
)

// sortKeys is the rotation used by App.Step.
var sortKeys = []SortKey{SortNewest, SortLikes, SortTitle}

// ParseSortKey parses a sort key name.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(s))
	if !slices.Contains(sortKeys, k) {
		return "", fmt.Errorf("blog: unknown sort key %q", s)
	}
	return k, nil
}

// SortPosts returns a sorted copy of posts. Ties are broken by creation
// time, newest first, then by id.
func SortPosts(posts []Post, by SortKey) []Post {
	sorted := slices.Clone(posts)
	newest := func(a, b Post) int {
		if c := b.Created.Compare(a.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}

	switch by {
	case SortLikes:
		slices.SortStableFunc(sorted, func(a, b Post) int {
			if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
				return c
			}
			return newest(a, b)
		})
	case SortTitle:
		slices.SortStableFunc(sorted, func(a, b Post) int {
			if c := cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
				return c
			}
			return newest(a, b)
		})
	default:
		slices.SortStableFunc(sorted, newest)
	}
	return sorted
}

var seedTitles = []string{
	"Memoizing components",
	"Callback identity",
	"Derived values",
	"When not to memoize",
	"Comparing props",
	"Keys and lists",
}

// Seed returns n sample posts, post-1 being the oldest.
func Seed(n int) []Post {
	base := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	posts := make([]Post, n)
	for i := range posts {
		title := seedTitles[i%len(seedTitles)]
		if i >= len(seedTitles) {
			title = fmt.Sprintf("%s (part %d)", title, i/len(seedTitles)+1)
		}
		posts[i] = Post{
			ID:      fmt.Sprintf("post-%d", i+1),
			Title:   title,
			Body:    "Notes on " + strings.ToLower(title) + ".",
			Created: base.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	return posts
}
