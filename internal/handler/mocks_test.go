package handler_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/starshelf/internal/auth"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// serve routes one request through a chi router so URL parameters resolve
// the way they do in the real server. A non-empty userID marks the request
// as authenticated.
func serve(method, pattern, target string, h http.HandlerFunc, body string, userID string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Method(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// ---- stars ---------------------------------------------------------------

type MockStars struct {
	CapturedUser  string
	CapturedOpts  service.SyncOptions
	CapturedQuery model.StarQuery
	Summary       *model.SyncSummary
	Page          *model.StarPage
	Err           error
}

func (m *MockStars) Sync(ctx context.Context, userID string, opts service.SyncOptions) (*model.SyncSummary, error) {
	m.CapturedUser = userID
	m.CapturedOpts = opts
	return m.Summary, m.Err
}

func (m *MockStars) Query(ctx context.Context, userID string, q model.StarQuery) (*model.StarPage, error) {
	m.CapturedUser = userID
	m.CapturedQuery = q
	return m.Page, m.Err
}

// ---- auth ----------------------------------------------------------------

type MockProvider struct {
	GitHubUser  *auth.GitHubUser
	AccessToken string
	Err         error
	Code        string
}

func (m *MockProvider) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (m *MockProvider) Exchange(ctx context.Context, code string) (*auth.GitHubUser, string, error) {
	m.Code = code
	return m.GitHubUser, m.AccessToken, m.Err
}

type MockAccounts struct {
	CapturedToken string
	Result        *service.AuthResult
	User          *model.User
	Err           error
}

func (m *MockAccounts) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser, accessToken string) (*service.AuthResult, error) {
	m.CapturedToken = accessToken
	return m.Result, m.Err
}

func (m *MockAccounts) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return m.User, m.Err
}

// ---- repos ---------------------------------------------------------------

type MockRepos struct {
	ResolvedOwner, ResolvedName string
	ResolveID                   int64
	Detailed                    int64
	DetailResult                *model.RepoDetail
	Viewer                      string
	Err                         error

	ListID     *int64
	Tag        string
	Notes      string
	Tags       []string
	AnnotateID int64
}

func (m *MockRepos) Resolve(ctx context.Context, userID, owner, name string) (int64, error) {
	m.ResolvedOwner, m.ResolvedName, m.Viewer = owner, name, userID
	return m.ResolveID, m.Err
}

func (m *MockRepos) Detail(ctx context.Context, userID string, id int64) (*model.RepoDetail, error) {
	m.Detailed, m.Viewer = id, userID
	return m.DetailResult, m.Err
}

func (m *MockRepos) AssignList(ctx context.Context, userID string, repoID int64, listID *int64) error {
	m.AnnotateID, m.ListID = repoID, listID
	return m.Err
}

func (m *MockRepos) AddTag(ctx context.Context, userID string, repoID int64, tag string) ([]string, error) {
	m.AnnotateID, m.Tag = repoID, tag
	return m.Tags, m.Err
}

func (m *MockRepos) RemoveTag(ctx context.Context, userID string, repoID int64, tag string) ([]string, error) {
	m.AnnotateID, m.Tag = repoID, tag
	return m.Tags, m.Err
}

func (m *MockRepos) SetNotes(ctx context.Context, userID string, repoID int64, notes string) error {
	m.AnnotateID, m.Notes = repoID, notes
	return m.Err
}

// ---- lists ---------------------------------------------------------------

type MockLists struct {
	CapturedInput  service.ListInput
	CapturedUpdate model.ListUpdate
	CapturedOrder  []int64
	CapturedSlug   string
	Result         *model.List
	ShareResult    *model.ShareState
	PublicResult   *model.PublicList
	Err            error
}

func (m *MockLists) Create(ctx context.Context, userID string, in service.ListInput) (*model.List, error) {
	m.CapturedInput = in
	return m.Result, m.Err
}

func (m *MockLists) List(ctx context.Context, userID string) ([]model.List, error) {
	if m.Result == nil {
		return []model.List{}, m.Err
	}
	return []model.List{*m.Result}, m.Err
}

func (m *MockLists) Update(ctx context.Context, userID string, id int64, upd model.ListUpdate) (*model.List, error) {
	m.CapturedUpdate = upd
	return m.Result, m.Err
}

func (m *MockLists) Reorder(ctx context.Context, userID string, orderedIDs []int64) error {
	m.CapturedOrder = orderedIDs
	return m.Err
}

func (m *MockLists) Delete(ctx context.Context, userID string, id int64) error {
	return m.Err
}

func (m *MockLists) ToggleShare(ctx context.Context, userID string, id int64) (*model.ShareState, error) {
	return m.ShareResult, m.Err
}

func (m *MockLists) Public(ctx context.Context, slug string) (*model.PublicList, error) {
	m.CapturedSlug = slug
	return m.PublicResult, m.Err
}

// ---- collections ---------------------------------------------------------

type MockCollections struct {
	Name       string
	Slug       string
	RepoID     int64
	Collection *model.Collection
	Err        error
}

func (m *MockCollections) Create(ctx context.Context, userID, name string, description *string) (*model.Collection, error) {
	m.Name = name
	return m.Collection, m.Err
}

func (m *MockCollections) List(ctx context.Context, userID string) ([]model.Collection, error) {
	return []model.Collection{}, m.Err
}

func (m *MockCollections) Get(ctx context.Context, userID, slug string) (*model.Collection, error) {
	m.Slug = slug
	return m.Collection, m.Err
}

func (m *MockCollections) Delete(ctx context.Context, userID, slug string) error {
	m.Slug = slug
	return m.Err
}

func (m *MockCollections) AddRepo(ctx context.Context, userID, slug string, repoID int64) error {
	m.Slug, m.RepoID = slug, repoID
	return m.Err
}

func (m *MockCollections) RemoveRepo(ctx context.Context, userID, slug string, repoID int64) error {
	m.Slug, m.RepoID = slug, repoID
	return m.Err
}

func (m *MockCollections) Repos(ctx context.Context, userID, slug string) ([]model.Repo, error) {
	m.Slug = slug
	return []model.Repo{}, m.Err
}

// ---- social --------------------------------------------------------------

type MockSocial struct {
	ID     int64
	Body   string
	Value  int
	Viewer string
	Err    error
}

func (m *MockSocial) ToggleLike(ctx context.Context, userID string, repoID int64) (*model.LikeResult, error) {
	m.ID = repoID
	return &model.LikeResult{Liked: true, Count: 1}, m.Err
}

func (m *MockSocial) Comments(ctx context.Context, repoID int64, viewerID string) ([]model.Comment, error) {
	m.ID, m.Viewer = repoID, viewerID
	return []model.Comment{}, m.Err
}

func (m *MockSocial) AddComment(ctx context.Context, userID string, repoID int64, body string) (*model.Comment, error) {
	m.ID, m.Body = repoID, body
	return &model.Comment{ID: 1, RepoID: repoID, Body: body}, m.Err
}

func (m *MockSocial) DeleteComment(ctx context.Context, userID string, commentID int64) error {
	m.ID = commentID
	return m.Err
}

func (m *MockSocial) Vote(ctx context.Context, userID string, commentID int64, value int) (*model.VoteResult, error) {
	m.ID, m.Value = commentID, value
	return &model.VoteResult{CommentID: commentID, Upvotes: 1, UserVote: value}, m.Err
}

// ---- health --------------------------------------------------------------

type MockPinger struct{ Err error }

func (m MockPinger) Ping(ctx context.Context) error { return m.Err }
