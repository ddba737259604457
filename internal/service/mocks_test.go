package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/github"
	"github.com/sakif/starshelf/internal/model"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================
//
// Hand-written fakes of the repository interfaces. Each one keeps just
// enough state to drive the service under test and exposes an error field
// to simulate a storage failure.

var errStorage = errors.New("database is on fire")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---- users ---------------------------------------------------------------

type fakeUserRepo struct {
	users       map[string]*model.User
	byGHID      map[int64]*model.User
	credentials map[string][]byte
	nextID      int
	upsertErr   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:       make(map[string]*model.User),
		byGHID:      make(map[int64]*model.User),
		credentials: make(map[string][]byte),
		nextID:      1,
	}
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.byGHID[user.GitHubID]; ok {
		existing.Login = user.Login
		existing.Name = user.Name
		existing.AvatarURL = user.AvatarURL
		existing.UpdatedAt = time.Now()
		*user = *existing
		return nil
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	f.byGHID[user.GitHubID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) SaveCredential(ctx context.Context, userID string, sealed []byte) error {
	f.credentials[userID] = sealed
	return nil
}

func (f *fakeUserRepo) GetCredential(ctx context.Context, userID string) ([]byte, error) {
	sealed, ok := f.credentials[userID]
	if !ok {
		return nil, apperror.NotFound("credential", userID)
	}
	return sealed, nil
}

// ---- repo cache ----------------------------------------------------------

type fakeRepoCache struct {
	repos     map[int64]model.Repo
	upserts   int
	upsertErr error
}

func newFakeRepoCache(repos ...model.Repo) *fakeRepoCache {
	f := &fakeRepoCache{repos: make(map[int64]model.Repo)}
	for _, r := range repos {
		f.repos[r.ID] = r
	}
	return f
}

func (f *fakeRepoCache) UpsertRepo(ctx context.Context, repo *model.Repo) error {
	return f.UpsertRepos(ctx, []model.Repo{*repo})
}

func (f *fakeRepoCache) UpsertRepos(ctx context.Context, repos []model.Repo) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, r := range repos {
		f.repos[r.ID] = r
		f.upserts++
	}
	return nil
}

func (f *fakeRepoCache) GetRepo(ctx context.Context, id int64) (*model.Repo, error) {
	r, ok := f.repos[id]
	if !ok {
		return nil, apperror.NotFound("repo", id)
	}
	return &r, nil
}

func (f *fakeRepoCache) FindRepoIDByFullName(ctx context.Context, fullName string) (int64, error) {
	for _, r := range f.repos {
		if strings.EqualFold(r.FullName, fullName) {
			return r.ID, nil
		}
	}
	return 0, apperror.NotFound("repo", fullName)
}

func (f *fakeRepoCache) GetRepoRefs(ctx context.Context, ids []int64) (map[int64]model.RepoRef, error) {
	out := make(map[int64]model.RepoRef, len(ids))
	for _, id := range ids {
		if r, ok := f.repos[id]; ok {
			out[id] = model.RepoRef{ID: r.ID, FullName: r.FullName, Description: r.Description}
		}
	}
	return out, nil
}

// ---- memberships ---------------------------------------------------------

type fakeMembership struct {
	listID *int64
	tags   []string
	notes  *string
}

type fakeMembershipStore struct {
	members  map[string]map[int64]*fakeMembership
	states   map[string]model.SyncState
	applyErr error
	applied  int
	touched  int
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{
		members: make(map[string]map[int64]*fakeMembership),
		states:  make(map[string]model.SyncState),
	}
}

func (f *fakeMembershipStore) seed(userID string, repoIDs ...int64) {
	if f.members[userID] == nil {
		f.members[userID] = make(map[int64]*fakeMembership)
	}
	for _, id := range repoIDs {
		f.members[userID][id] = &fakeMembership{tags: []string{}}
	}
}

func (f *fakeMembershipStore) MembershipIDs(ctx context.Context, userID string) ([]int64, error) {
	ids := make([]int64, 0, len(f.members[userID]))
	for id := range f.members[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeMembershipStore) ApplyDiff(ctx context.Context, userID string, diff model.MembershipDiff, state model.SyncState) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied++
	f.seed(userID)
	for _, s := range diff.Added {
		f.members[userID][s.Repo.ID] = &fakeMembership{tags: []string{}}
	}
	for _, id := range diff.Removed {
		delete(f.members[userID], id)
	}
	f.states[userID] = state
	return nil
}

func (f *fakeMembershipStore) GetSyncState(ctx context.Context, userID string) (*model.SyncState, error) {
	s, ok := f.states[userID]
	if !ok {
		return nil, apperror.NotFound("sync state", userID)
	}
	return &s, nil
}

func (f *fakeMembershipStore) TouchSyncState(ctx context.Context, userID string, at time.Time) error {
	s, ok := f.states[userID]
	if !ok {
		return apperror.NotFound("sync state", userID)
	}
	s.SyncedAt = at
	f.states[userID] = s
	f.touched++
	return nil
}

func (f *fakeMembershipStore) get(userID string, repoID int64) (*fakeMembership, error) {
	m, ok := f.members[userID][repoID]
	if !ok {
		return nil, apperror.NotFound("starred repo", repoID)
	}
	return m, nil
}

func (f *fakeMembershipStore) SetMembershipList(ctx context.Context, userID string, repoID int64, listID *int64) error {
	m, err := f.get(userID, repoID)
	if err != nil {
		return err
	}
	m.listID = listID
	return nil
}

func (f *fakeMembershipStore) GetMembershipTags(ctx context.Context, userID string, repoID int64) ([]string, error) {
	m, err := f.get(userID, repoID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, m.tags...), nil
}

func (f *fakeMembershipStore) SetMembershipTags(ctx context.Context, userID string, repoID int64, tags []string) error {
	m, err := f.get(userID, repoID)
	if err != nil {
		return err
	}
	m.tags = tags
	return nil
}

func (f *fakeMembershipStore) SetMembershipNotes(ctx context.Context, userID string, repoID int64, notes *string) error {
	m, err := f.get(userID, repoID)
	if err != nil {
		return err
	}
	m.notes = notes
	return nil
}

// ---- query store ---------------------------------------------------------

type fakeQueryStore struct {
	lastQuery model.StarQuery
	repos     []model.StarredRepo
	languages []model.LanguageFacet
	lists     []model.ListFacet
	tags      []model.TagFacet
	err       error

	categoriesAsked []model.Category
}

func (f *fakeQueryStore) QueryStars(ctx context.Context, userID string, q model.StarQuery) ([]model.StarredRepo, int, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.repos, len(f.repos), nil
}

func (f *fakeQueryStore) LanguageFacets(ctx context.Context, userID string) ([]model.LanguageFacet, error) {
	return f.languages, nil
}

func (f *fakeQueryStore) ListFacets(ctx context.Context, userID string) ([]model.ListFacet, error) {
	return f.lists, nil
}

func (f *fakeQueryStore) TagFacets(ctx context.Context, userID string) ([]model.TagFacet, error) {
	return f.tags, nil
}

func (f *fakeQueryStore) CategoryFacets(ctx context.Context, userID string, cats []model.Category) ([]model.CategoryFacet, error) {
	f.categoriesAsked = cats
	facets := make([]model.CategoryFacet, 0, len(cats)+1)
	for _, c := range cats {
		facets = append(facets, model.CategoryFacet{Slug: c.Slug, Name: c.Name})
	}
	return append(facets, model.CategoryFacet{Slug: model.CategoryUncategorized, Name: "Uncategorized"}), nil
}

// ---- lists ---------------------------------------------------------------

type fakeListRepo struct {
	lists      map[int64]*model.List
	nextID     int64
	takenSlugs map[string]bool
	reordered  []int64
}

func newFakeListRepo() *fakeListRepo {
	return &fakeListRepo{lists: make(map[int64]*model.List), nextID: 1, takenSlugs: make(map[string]bool)}
}

func (f *fakeListRepo) CreateList(ctx context.Context, list *model.List) error {
	pos := 0
	for _, l := range f.lists {
		if l.UserID == list.UserID && l.Position >= pos {
			pos = l.Position + 1
		}
	}
	list.ID = f.nextID
	f.nextID++
	list.Position = pos
	if list.Color == "" {
		list.Color = model.DefaultListColor
	}
	cp := *list
	f.lists[list.ID] = &cp
	return nil
}

func (f *fakeListRepo) GetList(ctx context.Context, id int64) (*model.List, error) {
	l, ok := f.lists[id]
	if !ok {
		return nil, apperror.NotFound("list", id)
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListRepo) ListLists(ctx context.Context, userID string) ([]model.List, error) {
	out := []model.List{}
	for _, l := range f.lists {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeListRepo) UpdateList(ctx context.Context, userID string, id int64, upd model.ListUpdate) (*model.List, error) {
	l := f.lists[id]
	if upd.Name != nil {
		l.Name = *upd.Name
	}
	if upd.Color != nil {
		l.Color = *upd.Color
	}
	if upd.Icon != nil {
		l.Icon = nilIfEmpty(*upd.Icon)
	}
	if upd.Description != nil {
		l.Description = nilIfEmpty(*upd.Description)
	}
	if upd.Position != nil {
		l.Position = *upd.Position
	}
	cp := *l
	return &cp, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (f *fakeListRepo) ReorderLists(ctx context.Context, userID string, orderedIDs []int64) error {
	f.reordered = orderedIDs
	for i, id := range orderedIDs {
		f.lists[id].Position = i
	}
	return nil
}

func (f *fakeListRepo) DeleteList(ctx context.Context, userID string, id int64) error {
	delete(f.lists, id)
	return nil
}

func (f *fakeListRepo) SetListSharing(ctx context.Context, userID string, id int64, public bool, slug string) error {
	l := f.lists[id]
	l.IsPublic = public
	l.Slug = &slug
	f.takenSlugs[slug] = true
	return nil
}

func (f *fakeListRepo) SlugTaken(ctx context.Context, slug string) (bool, error) {
	return f.takenSlugs[slug], nil
}

func (f *fakeListRepo) GetPublicList(ctx context.Context, slug string) (*model.PublicList, error) {
	for _, l := range f.lists {
		if l.Slug != nil && *l.Slug == slug && l.IsPublic {
			return &model.PublicList{List: *l, Repos: []model.Repo{}}, nil
		}
	}
	return nil, apperror.NotFound("public list", slug)
}

// ---- collections ---------------------------------------------------------

type fakeCollectionRepo struct {
	collections map[string]*model.Collection // key: userID + "/" + slug
	links       map[int64][]int64
	nextID      int64
}

func newFakeCollectionRepo() *fakeCollectionRepo {
	return &fakeCollectionRepo{
		collections: make(map[string]*model.Collection),
		links:       make(map[int64][]int64),
		nextID:      1,
	}
}

func (f *fakeCollectionRepo) CreateCollection(ctx context.Context, c *model.Collection) error {
	key := c.UserID + "/" + c.Slug
	if _, ok := f.collections[key]; ok {
		return apperror.Conflict("slug already in use")
	}
	c.ID = f.nextID
	f.nextID++
	cp := *c
	f.collections[key] = &cp
	return nil
}

func (f *fakeCollectionRepo) GetCollectionBySlug(ctx context.Context, userID, slug string) (*model.Collection, error) {
	c, ok := f.collections[userID+"/"+slug]
	if !ok {
		return nil, apperror.NotFound("collection", slug)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCollectionRepo) ListCollections(ctx context.Context, userID string) ([]model.Collection, error) {
	out := []model.Collection{}
	for _, c := range f.collections {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCollectionRepo) DeleteCollection(ctx context.Context, userID, slug string) error {
	key := userID + "/" + slug
	if _, ok := f.collections[key]; !ok {
		return apperror.NotFound("collection", slug)
	}
	delete(f.collections, key)
	return nil
}

func (f *fakeCollectionRepo) CollectionSlugTaken(ctx context.Context, userID, slug string) (bool, error) {
	_, ok := f.collections[userID+"/"+slug]
	return ok, nil
}

func (f *fakeCollectionRepo) AddCollectionRepo(ctx context.Context, collectionID, repoID int64) error {
	for _, id := range f.links[collectionID] {
		if id == repoID {
			return apperror.Conflict("repo is already in this collection")
		}
	}
	f.links[collectionID] = append(f.links[collectionID], repoID)
	return nil
}

func (f *fakeCollectionRepo) RemoveCollectionRepo(ctx context.Context, collectionID, repoID int64) error {
	ids := f.links[collectionID]
	for i, id := range ids {
		if id == repoID {
			f.links[collectionID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("collection repo", repoID)
}

func (f *fakeCollectionRepo) CollectionRepos(ctx context.Context, collectionID int64) ([]model.Repo, error) {
	out := []model.Repo{}
	for _, id := range f.links[collectionID] {
		out = append(out, model.Repo{ID: id})
	}
	return out, nil
}

// ---- social --------------------------------------------------------------

type fakeSocialRepo struct {
	likes    map[int64]map[string]bool
	authors  map[int64]string
	deleted  []int64
	votes    int
	comments int
}

func newFakeSocialRepo() *fakeSocialRepo {
	return &fakeSocialRepo{likes: make(map[int64]map[string]bool), authors: make(map[int64]string)}
}

func (f *fakeSocialRepo) ToggleLike(ctx context.Context, userID string, repoID int64) (*model.LikeResult, error) {
	if f.likes[repoID] == nil {
		f.likes[repoID] = make(map[string]bool)
	}
	liked := !f.likes[repoID][userID]
	if liked {
		f.likes[repoID][userID] = true
	} else {
		delete(f.likes[repoID], userID)
	}
	return &model.LikeResult{Liked: liked, Count: len(f.likes[repoID])}, nil
}

func (f *fakeSocialRepo) RepoCounters(ctx context.Context, repoID int64, viewerID string) (int, int, bool, error) {
	return len(f.likes[repoID]), f.comments, f.likes[repoID][viewerID], nil
}

func (f *fakeSocialRepo) ListComments(ctx context.Context, repoID int64, viewerID string) ([]model.Comment, error) {
	return []model.Comment{}, nil
}

func (f *fakeSocialRepo) CreateComment(ctx context.Context, userID string, repoID int64, body string) (*model.Comment, error) {
	f.comments++
	id := int64(f.comments)
	f.authors[id] = userID
	return &model.Comment{ID: id, RepoID: repoID, Body: body, Author: model.Owner{ID: userID}}, nil
}

func (f *fakeSocialRepo) GetCommentAuthor(ctx context.Context, commentID int64) (string, error) {
	a, ok := f.authors[commentID]
	if !ok {
		return "", apperror.NotFound("comment", commentID)
	}
	return a, nil
}

func (f *fakeSocialRepo) DeleteComment(ctx context.Context, commentID int64) error {
	f.deleted = append(f.deleted, commentID)
	delete(f.authors, commentID)
	return nil
}

func (f *fakeSocialRepo) Vote(ctx context.Context, userID string, commentID int64, value int) (*model.VoteResult, error) {
	f.votes++
	res := &model.VoteResult{CommentID: commentID, UserVote: value}
	if value > 0 {
		res.Upvotes = 1
	} else {
		res.Downvotes = 1
	}
	return res, nil
}

// ---- upstream ------------------------------------------------------------

type fakeUpstream struct {
	stars       []model.FetchedStar
	etag        string
	notModified bool
	listErr     error
	pageSize    int
	byName      map[string]model.Repo
	byID        map[int64]model.Repo

	lastETag    string
	listCalls   int
	lookupCalls int
}

func (f *fakeUpstream) ListStarred(ctx context.Context, etag string) (*github.Listing, error) {
	f.listCalls++
	f.lastETag = etag
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.notModified && etag != "" {
		return &github.Listing{NotModified: true, ETag: etag}, nil
	}
	return &github.Listing{Stars: f.stars, ETag: f.etag}, nil
}

func (f *fakeUpstream) GetRepoByID(ctx context.Context, id int64) (*model.Repo, error) {
	f.lookupCalls++
	r, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("repo", id)
	}
	return &r, nil
}

func (f *fakeUpstream) GetRepoByName(ctx context.Context, owner, name string) (*model.Repo, error) {
	f.lookupCalls++
	for key, r := range f.byName {
		if strings.EqualFold(key, owner+"/"+name) {
			return &r, nil
		}
	}
	return nil, apperror.NotFound("repo", owner+"/"+name)
}

func (f *fakeUpstream) PageSize() int {
	if f.pageSize == 0 {
		return github.DefaultPageSize
	}
	return f.pageSize
}

func connectTo(up Upstream) Connector {
	return ConnectorFunc(func(ctx context.Context, userID string) (Upstream, error) {
		return up, nil
	})
}

func testRepo(id int64, fullName string) model.Repo {
	return model.Repo{ID: id, Name: fullName, FullName: fullName, Topics: []string{}}
}

func testStar(id int64, fullName string) model.FetchedStar {
	return model.FetchedStar{Repo: testRepo(id, fullName), StarredAt: time.Date(2024, 6, 1, 0, int(id), 0, 0, time.UTC)}
}
