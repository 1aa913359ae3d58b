package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"foodshare/internal/foodapi"
	"foodshare/internal/identity"
	"foodshare/internal/imagehost"
	"foodshare/internal/metrics"
	"foodshare/internal/view"
	"foodshare/pkg/types"

	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeFoods is an in-memory food API.
type fakeFoods struct {
	mu    sync.Mutex
	calls map[string]int

	foods    []*types.Food
	requests map[string][]*types.Request
	mine     []*types.Request

	created []types.FoodInput
	updates map[string]types.FoodUpdate

	listErr   error
	deleteErr error
}

func newFakeFoods(foods ...*types.Food) *fakeFoods {
	return &fakeFoods{
		calls:    map[string]int{},
		foods:    foods,
		requests: map[string][]*types.Request{},
		updates:  map[string]types.FoodUpdate{},
	}
}

func (f *fakeFoods) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeFoods) record(op string) {
	f.calls[op]++
}

func (f *fakeFoods) ListFoods(_ context.Context, opts foodapi.ListFoodsOptions, _ *types.Session) ([]*types.Food, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListFoods")

	if f.listErr != nil {
		err := f.listErr
		f.listErr = nil
		return nil, err
	}

	out := []*types.Food{}
	for _, food := range f.foods {
		if opts.Status != "" && food.Status != opts.Status {
			continue
		}
		c := *food
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeFoods) GetFood(_ context.Context, id string) (*types.Food, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetFood")

	for _, food := range f.foods {
		if food.ID == id {
			c := *food
			return &c, nil
		}
	}
	return nil, types.ErrFoodNotFound
}

func (f *fakeFoods) CreateFood(_ context.Context, input types.FoodInput, _ *types.Session) (*types.Food, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateFood")

	f.created = append(f.created, input)
	return &types.Food{ID: fmt.Sprintf("new-%d", len(f.created)), Name: input.Name, Status: input.Status}, nil
}

func (f *fakeFoods) UpdateFood(_ context.Context, id string, update types.FoodUpdate, _ *types.Session) (*types.Food, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateFood")

	f.updates[id] = update
	return nil, nil
}

func (f *fakeFoods) DeleteFood(_ context.Context, id string, _ *types.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteFood")

	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, food := range f.foods {
		if food.ID == id {
			f.foods = append(f.foods[:i:i], f.foods[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeFoods) MyFoods(_ context.Context, sess *types.Session) ([]*types.Food, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MyFoods")

	out := []*types.Food{}
	for _, food := range f.foods {
		if strings.EqualFold(food.Donator.Email, sess.User.Email) {
			c := *food
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeFoods) SubmitRequest(_ context.Context, foodID string, input types.RequestInput, sess *types.Session) (*types.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SubmitRequest")

	return &types.Request{
		ID:        "req-new",
		FoodID:    foodID,
		Requester: types.Requester{Name: sess.User.DisplayName, Email: sess.User.Email},
		Contact:   input.Contact,
		Location:  input.Location,
		Reason:    input.Reason,
		Status:    types.RequestStatusPending,
	}, nil
}

func (f *fakeFoods) FoodRequests(_ context.Context, foodID string, _ *types.Session) ([]*types.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FoodRequests")

	out := []*types.Request{}
	for _, r := range f.requests[foodID] {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeFoods) UpdateRequestStatus(context.Context, string, types.RequestStatus, *types.Session) (*types.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateRequestStatus")
	return nil, nil
}

func (f *fakeFoods) MyRequests(context.Context, *types.Session) ([]*types.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MyRequests")
	return f.mine, nil
}

type fakeAccount struct {
	password string
	user     types.User
}

// fakeProvider signs in accounts it was given. Its ID tokens are
// "token:<email>".
type fakeProvider struct {
	mu              sync.Mutex
	accounts        map[string]fakeAccount
	googleURL       string
	confirmRequired bool
	signUpErr       error
	resets          []string
	logouts         int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]fakeAccount{}}
}

func (p *fakeProvider) add(email, password, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[email] = fakeAccount{
		password: password,
		user:     types.User{UID: "uid-" + email, Email: email, DisplayName: name},
	}
}

func (p *fakeProvider) session(email string) *types.Session {
	return &types.Session{
		User:        p.accounts[email].user,
		IDToken:     "token:" + email,
		AccessToken: "access:" + email,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func (p *fakeProvider) SignInEmail(_ context.Context, email, password string) (*types.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[email]
	if !ok || acct.password != password {
		return nil, fmt.Errorf("%w: bad password", identity.ErrInvalidCredentials)
	}
	return p.session(email), nil
}

func (p *fakeProvider) GoogleSignInURL(state string) (string, error) {
	if p.googleURL == "" {
		return "", identity.ErrGoogleDisabled
	}
	return p.googleURL + "?state=" + url.QueryEscape(state), nil
}

func (p *fakeProvider) SignInWithGoogle(_ context.Context, code string) (*types.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email := strings.TrimPrefix(code, "code:")
	if _, ok := p.accounts[email]; !ok {
		return nil, identity.ErrInvalidCredentials
	}
	return p.session(email), nil
}

func (p *fakeProvider) CreateUser(_ context.Context, user types.NewUser) (*types.SignUpResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	p.accounts[user.Email] = fakeAccount{
		password: user.Password,
		user:     types.User{UID: "uid-" + user.Email, Email: user.Email, DisplayName: user.DisplayName, PhotoURL: user.PhotoURL},
	}
	if p.confirmRequired {
		return &types.SignUpResult{ConfirmationRequired: true}, nil
	}
	return &types.SignUpResult{Session: p.session(user.Email)}, nil
}

func (p *fakeProvider) ConfirmUser(_ context.Context, _, code string) error {
	if code != "123456" {
		return fmt.Errorf("%w: wrong code", identity.ErrCodeMismatch)
	}
	return nil
}

func (p *fakeProvider) ResetPassword(_ context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets = append(p.resets, email)
	return nil
}

func (p *fakeProvider) LogOut(context.Context, *types.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts++
	return nil
}

func (p *fakeProvider) Verify(_ context.Context, idToken string) (*types.User, time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := strings.CutPrefix(idToken, "token:")
	acct, found := p.accounts[email]
	if !ok || !found {
		return nil, time.Time{}, fmt.Errorf("%w: unknown token", identity.ErrInvalidToken)
	}
	user := acct.user
	return &user, time.Now().Add(time.Hour), nil
}

type fakeUploader struct {
	mu     sync.Mutex
	images []imagehost.Image
	err    error
}

func (u *fakeUploader) Upload(_ context.Context, img imagehost.Image) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.images = append(u.images, img)
	return "https://img.example/" + img.Filename, nil
}

type testEnv struct {
	service  *Service
	foods    *fakeFoods
	provider *fakeProvider
	uploader *fakeUploader
	registry *view.Registry
}

func newTestEnv(t *testing.T, foods ...*types.Food) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	config := &types.Config{
		CookieHashKey:    base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)),
		CookieBlockKey:   base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)),
		SessionMaxAgeSec: 3600,
		MaxUploadSizeMiB: 1,
	}

	env := &testEnv{
		foods:    newFakeFoods(foods...),
		provider: newFakeProvider(),
		uploader: &fakeUploader{},
		registry: view.NewRegistry(time.Minute, 8, 64, logger, nil),
	}

	s, err := New(config, logger, env.foods, env.uploader, env.provider, env.registry, metrics.New())
	require.NoError(t, err)
	env.service = s

	return env
}

// browser replays the cookies each response sets, like a real browser
// would, including Secure ones over plain http.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, handler: e.service.Handler(), cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) login(email, password string) {
	b.t.Helper()
	rec := b.post("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(b.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Contains(b.t, b.cookies, cookieSessionName)
}

var viewIDReg = regexp.MustCompile(`name="view" value="([^"]+)"`)

func viewIDFrom(t *testing.T, body string) string {
	t.Helper()
	m := viewIDReg.FindStringSubmatch(body)
	require.NotNil(t, m, "no view id in page")
	return m[1]
}

func location(rec *httptest.ResponseRecorder) string {
	return rec.Header().Get("Location")
}

func food(id, name, donatorEmail string, qty int) *types.Food {
	return &types.Food{
		ID:             id,
		Name:           name,
		QuantityNumber: qty,
		PickupLocation: "Dhaka",
		Donator:        types.Donator{Name: "Donor " + id, Email: donatorEmail},
		Status:         types.FoodStatusAvailable,
	}
}
