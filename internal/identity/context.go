package identity

import (
	"context"
	"sync"
	"time"

	"foodshare/pkg/types"
)

// Listener is called with the new user, nil when signed out, each time the
// auth state changes.
type Listener func(user *types.User)

// Context is the read model of who is signed in. It starts out loading and
// stops loading on the first Restore; from then on sign-in and sign-out
// update it and notify subscribers.
type Context struct {
	provider Provider
	now      func() time.Time

	mu        sync.Mutex
	session   *types.Session
	loading   bool
	listeners map[int]Listener
	nextID    int
}

func NewContext(provider Provider) *Context {
	return &Context{
		provider:  provider,
		now:       time.Now,
		loading:   true,
		listeners: map[int]Listener{},
	}
}

func (c *Context) User() *types.User {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	user := c.session.User
	return &user
}

func (c *Context) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Session returns the current session, to be handed to data access calls.
func (c *Context) Session() *types.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Subscribe registers fn for auth state changes. The returned func removes
// it and is safe to call more than once.
func (c *Context) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Restore resolves the initial auth state from a previously stored session.
// A missing or expired session resolves to signed out. A stored token the
// provider rejects also resolves to signed out, and the error is returned so
// the caller can drop it.
func (c *Context) Restore(ctx context.Context, stored *types.Session) error {
	var (
		resolved *types.Session
		err      error
	)

	if stored != nil && stored.IDToken != "" && !stored.Expired(c.now()) {
		var user *types.User
		var expires time.Time
		user, expires, err = c.provider.Verify(ctx, stored.IDToken)
		if err == nil {
			sess := *stored
			sess.User = *user
			if !expires.IsZero() {
				sess.ExpiresAt = expires
			}
			resolved = &sess
		}
	}

	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()

	c.setSession(resolved)

	return err
}

func (c *Context) SignInEmail(ctx context.Context, email, password string) (*types.Session, error) {
	sess, err := c.provider.SignInEmail(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.setSession(sess)
	return sess, nil
}

// GoogleSignInURL starts the redirect half of a Google sign-in.
func (c *Context) GoogleSignInURL(state string) (string, error) {
	return c.provider.GoogleSignInURL(state)
}

// SignInWithGoogle completes a Google sign-in with the code the provider
// redirected back with.
func (c *Context) SignInWithGoogle(ctx context.Context, code string) (*types.Session, error) {
	sess, err := c.provider.SignInWithGoogle(ctx, code)
	if err != nil {
		return nil, err
	}
	c.setSession(sess)
	return sess, nil
}

// CreateUser registers a new account. Providers that sign the user in
// right away leave the Context signed in.
func (c *Context) CreateUser(ctx context.Context, user types.NewUser) (*types.SignUpResult, error) {
	res, err := c.provider.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		c.setSession(res.Session)
	}
	return res, nil
}

func (c *Context) ConfirmUser(ctx context.Context, email, code string) error {
	return c.provider.ConfirmUser(ctx, email, code)
}

func (c *Context) ResetPassword(ctx context.Context, email string) error {
	return c.provider.ResetPassword(ctx, email)
}

func (c *Context) LogOut(ctx context.Context) error {
	if err := c.provider.LogOut(ctx, c.Session()); err != nil {
		return err
	}
	c.setSession(nil)
	return nil
}

func (c *Context) setSession(sess *types.Session) {
	c.mu.Lock()
	c.session = sess
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	var user *types.User
	if sess != nil {
		u := sess.User
		user = &u
	}

	for _, fn := range listeners {
		fn(user)
	}
}
