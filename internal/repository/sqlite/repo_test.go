package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
)

func TestUpsertRepo_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := testRepo(1, "alpha", "Go", 10)

	if err := db.UpsertRepo(ctx, &repo); err != nil {
		t.Fatalf("first UpsertRepo() error = %v", err)
	}
	once, err := db.GetRepo(ctx, 1)
	if err != nil {
		t.Fatalf("GetRepo() error = %v", err)
	}

	if err := db.UpsertRepo(ctx, &repo); err != nil {
		t.Fatalf("second UpsertRepo() error = %v", err)
	}
	twice, err := db.GetRepo(ctx, 1)
	if err != nil {
		t.Fatalf("GetRepo() error = %v", err)
	}

	if once.Name != twice.Name || once.FullName != twice.FullName ||
		once.StargazersCount != twice.StargazersCount ||
		*once.Description != *twice.Description || *once.Language != *twice.Language ||
		!reflect.DeepEqual(once.Topics, twice.Topics) ||
		!once.RepoUpdatedAt.Equal(*twice.RepoUpdatedAt) {
		t.Errorf("repo changed after identical upsert:\n once  %+v\n twice %+v", once, twice)
	}

	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM repos`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("repos row count = %d, want 1", n)
	}
}

func TestUpsertRepo_OverwritesMutableFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := testRepo(7, "beta", "Rust", 10)
	if err := db.UpsertRepo(ctx, &repo); err != nil {
		t.Fatalf("UpsertRepo() error = %v", err)
	}

	repo.StargazersCount = 99
	repo.Description = nil
	repo.Language = nil
	repo.Topics = []string{"a", "b"}
	if err := db.UpsertRepo(ctx, &repo); err != nil {
		t.Fatalf("UpsertRepo() error = %v", err)
	}

	got, err := db.GetRepo(ctx, 7)
	if err != nil {
		t.Fatalf("GetRepo() error = %v", err)
	}
	if got.ID != 7 {
		t.Errorf("ID = %d, want 7", got.ID)
	}
	if got.StargazersCount != 99 {
		t.Errorf("StargazersCount = %d, want 99", got.StargazersCount)
	}
	if got.Description != nil || got.Language != nil {
		t.Errorf("nullable fields kept stale values: description=%v language=%v", got.Description, got.Language)
	}
	if !reflect.DeepEqual(got.Topics, []string{"a", "b"}) {
		t.Errorf("Topics = %v, want [a b]", got.Topics)
	}
}

func TestGetRepo_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetRepo(context.Background(), 404)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetRepo() error = %v, want ErrNotFound", err)
	}
}

func TestFindRepoIDByFullName_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := testRepo(3, "Gamma", "Go", 1)
	if err := db.UpsertRepo(ctx, &repo); err != nil {
		t.Fatalf("UpsertRepo() error = %v", err)
	}

	id, err := db.FindRepoIDByFullName(ctx, "OWNER/gamma")
	if err != nil {
		t.Fatalf("FindRepoIDByFullName() error = %v", err)
	}
	if id != 3 {
		t.Errorf("FindRepoIDByFullName() = %d, want 3", id)
	}

	if _, err := db.FindRepoIDByFullName(ctx, "owner/missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("miss error = %v, want ErrNotFound", err)
	}
}

func TestGetRepoRefs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repos := []model.Repo{testRepo(1, "one", "Go", 1), testRepo(2, "two", "Go", 2)}
	if err := db.UpsertRepos(ctx, repos); err != nil {
		t.Fatalf("UpsertRepos() error = %v", err)
	}

	refs, err := db.GetRepoRefs(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("GetRepoRefs() error = %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("GetRepoRefs() returned %d refs, want 2", len(refs))
	}
	if refs[2].FullName != "owner/two" || refs[2].Description == nil {
		t.Errorf("refs[2] = %+v", refs[2])
	}
}
