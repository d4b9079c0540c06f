package blog

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/vango-dev/memo/pkg/compose"
	"github.com/vango-dev/memo/pkg/memo"
	"github.com/vango-dev/memo/pkg/vdom"
)

var (
	// ErrSignedOut is returned by Like while nobody is signed in.
	ErrSignedOut = errors.New("blog: sign in to like posts")

	// ErrNoPost is returned by Like for an unknown post id.
	ErrNoPost = errors.New("blog: no such post")
)

// App is the blog application. Pass App.Blog to compose.NewScheduler as
// the root component; the control methods work once it has mounted.
type App struct {
	seed    []Post
	handles atomic.Pointer[handles]
}

type handles struct {
	signedIn *compose.State[bool]
	posts    *compose.State[[]Post]
	sortBy   *compose.State[SortKey]
	clock    *compose.State[int]
}

// New creates an app showing posts, signed in.
func New(posts []Post) *App {
	return &App{seed: posts}
}

func (a *App) state() (*handles, error) {
	h := a.handles.Load()
	if h == nil {
		return nil, fmt.Errorf("%w: blog", compose.ErrNotMounted)
	}
	return h, nil
}

// Blog is the root component.
func (a *App) Blog(r *compose.Render, _ struct{}) (*vdom.VNode, error) {
	h := &handles{
		signedIn: compose.UseState(r, true),
		posts:    compose.UseState(r, a.seed),
		sortBy:   compose.UseState(r, SortNewest),
		clock:    compose.UseState(r, 0),
	}
	a.handles.Store(h)

	logger := r.Scheduler().Logger()
	onLike := compose.UseCallback(r, func(id string) {
		if err := a.Like(id); err != nil {
			logger.Debug("like rejected", "post", id, "error", err)
		}
	})

	list, err := compose.Child(r, "posts", PostList, PostListProps{
		Posts:    h.posts.Get(),
		SortBy:   h.sortBy.Get(),
		SignedIn: h.signedIn.Get(),
		OnLike:   onLike,
	})
	if err != nil {
		return nil, err
	}

	session := "Signed out"
	if h.signedIn.Get() {
		session = "Signed in"
	}
	return vdom.Div(vdom.Class("blog"),
		vdom.Header(
			vdom.H1("Blog"),
			vdom.Span(vdom.Class("session"), session),
			vdom.Span(vdom.Class("clock"), vdom.Textf("tick %d", h.clock.Get())),
		),
		list,
	), nil
}

// ToggleSignIn flips the session.
func (a *App) ToggleSignIn() error {
	h, err := a.state()
	if err != nil {
		return err
	}
	h.signedIn.Update(func(v bool) bool { return !v })
	return nil
}

// Tick advances the clock shown in the header.
func (a *App) Tick() error {
	h, err := a.state()
	if err != nil {
		return err
	}
	h.clock.Update(func(v int) int { return v + 1 })
	return nil
}

// SortBy changes the order of the post list.
func (a *App) SortBy(k SortKey) error {
	h, err := a.state()
	if err != nil {
		return err
	}
	h.sortBy.Set(k)
	return nil
}

// Like adds a like to the post with the given id. It checks the session
// and the id against the committed state.
func (a *App) Like(id string) error {
	h, err := a.state()
	if err != nil {
		return err
	}
	if !h.signedIn.Get() {
		return ErrSignedOut
	}
	if !hasPost(h.posts.Get(), id) {
		return fmt.Errorf("%w: %s", ErrNoPost, id)
	}
	h.posts.Update(func(posts []Post) []Post {
		next := make([]Post, len(posts))
		copy(next, posts)
		for i := range next {
			if next[i].ID == id {
				next[i].Likes++
			}
		}
		return next
	})
	return nil
}

func hasPost(posts []Post, id string) bool {
	for _, p := range posts {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Step applies the i-th action of the demo workload: mostly clock ticks,
// with likes, session toggles and sort changes mixed in.
func (a *App) Step(i int) error {
	switch {
	case i%10 == 9:
		return a.SortBy(sortKeys[(i/10+1)%len(sortKeys)])
	case i%5 == 4:
		return a.ToggleSignIn()
	case i%3 == 2 && len(a.seed) > 0:
		err := a.Like(a.seed[(i/3)%len(a.seed)].ID)
		if errors.Is(err, ErrSignedOut) {
			return nil
		}
		return err
	default:
		return a.Tick()
	}
}

// PostListProps are the props of PostList.
type PostListProps struct {
	Posts    []Post
	SortBy   SortKey
	SignedIn bool
	OnLike   func(id string)
}

// PostList renders the sorted posts.
func PostList(r *compose.Render, p PostListProps) (*vdom.VNode, error) {
	sorted := compose.UseMemo(r, func() []Post {
		return SortPosts(p.Posts, p.SortBy)
	}, p.Posts, p.SortBy)

	onLike := compose.UseCallback(r, func(id string) {
		if p.OnLike != nil {
			p.OnLike(id)
		}
	}, p.OnLike)

	items := make([]*vdom.VNode, 0, len(sorted))
	for _, post := range sorted {
		item, err := compose.Child(r, post.ID, PostView, PostProps{
			Post:     post,
			SignedIn: p.SignedIn,
			OnLike:   onLike,
		}, postComparator)
		if err != nil {
			return nil, err
		}
		items = append(items, vdom.Li(item))
	}

	return vdom.Section(vdom.Class("posts"),
		vdom.If(!p.SignedIn, vdom.P(vdom.Class("hint"), "Sign in to like posts")),
		vdom.Ul(items),
	), nil
}

// PostProps are the props of PostView.
type PostProps struct {
	Post     Post
	SignedIn bool
	OnLike   func(id string)
}

// postComparator leaves SignedIn out: the article markup does not depend
// on it, the list shows the sign-in hint instead.
var postComparator = memo.WithComparator(memo.ShallowFields[PostProps]("Post", "OnLike"))

// PostView renders a single post.
func PostView(r *compose.Render, p PostProps) (*vdom.VNode, error) {
	return vdom.Article(vdom.Data("post", p.Post.ID),
		vdom.H2(p.Post.Title),
		vdom.P(p.Post.Body),
		vdom.Div(vdom.Class("likes"),
			vdom.Span(vdom.Textf("%d likes", p.Post.Likes)),
			vdom.Button("Like"),
		),
	), nil
}
