package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
)

func TestCollections(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, 1, "alice")
	bob := createTestUser(t, db, 2, "bob")
	if err := db.UpsertRepos(ctx, []model.Repo{testRepo(1, "one", "Go", 1), testRepo(2, "two", "Go", 2)}); err != nil {
		t.Fatal(err)
	}

	c := &model.Collection{UserID: alice.ID, Name: "Tools", Slug: "tools"}
	if err := db.CreateCollection(ctx, c); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	if c.ID == 0 {
		t.Fatal("CreateCollection() did not set ID")
	}

	t.Run("slug unique per user", func(t *testing.T) {
		dup := &model.Collection{UserID: alice.ID, Name: "Tools again", Slug: "tools"}
		if err := db.CreateCollection(ctx, dup); !errors.Is(err, apperror.ErrConflict) {
			t.Errorf("duplicate slug error = %v, want ErrConflict", err)
		}
		theirs := &model.Collection{UserID: bob.ID, Name: "Tools", Slug: "tools"}
		if err := db.CreateCollection(ctx, theirs); err != nil {
			t.Errorf("same slug for another user error = %v", err)
		}
		taken, err := db.CollectionSlugTaken(ctx, alice.ID, "tools")
		if err != nil || !taken {
			t.Errorf("CollectionSlugTaken() = %v, %v", taken, err)
		}
	})

	t.Run("repos are non-exclusive", func(t *testing.T) {
		other := &model.Collection{UserID: alice.ID, Name: "Misc", Slug: "misc"}
		if err := db.CreateCollection(ctx, other); err != nil {
			t.Fatal(err)
		}
		for _, id := range []int64{c.ID, other.ID} {
			if err := db.AddCollectionRepo(ctx, id, 1); err != nil {
				t.Fatalf("AddCollectionRepo(%d) error = %v", id, err)
			}
		}
		if err := db.AddCollectionRepo(ctx, c.ID, 1); !errors.Is(err, apperror.ErrConflict) {
			t.Errorf("duplicate add error = %v, want ErrConflict", err)
		}
		if err := db.AddCollectionRepo(ctx, c.ID, 2); err != nil {
			t.Fatal(err)
		}

		repos, err := db.CollectionRepos(ctx, c.ID)
		if err != nil {
			t.Fatalf("CollectionRepos() error = %v", err)
		}
		if len(repos) != 2 {
			t.Errorf("collection has %d repos, want 2", len(repos))
		}
	})

	t.Run("remove repo", func(t *testing.T) {
		if err := db.RemoveCollectionRepo(ctx, c.ID, 2); err != nil {
			t.Fatalf("RemoveCollectionRepo() error = %v", err)
		}
		if err := db.RemoveCollectionRepo(ctx, c.ID, 2); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("second remove error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		all, err := db.ListCollections(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListCollections() error = %v", err)
		}
		if len(all) != 2 {
			t.Errorf("ListCollections() = %d, want 2", len(all))
		}

		if err := db.DeleteCollection(ctx, alice.ID, "tools"); err != nil {
			t.Fatalf("DeleteCollection() error = %v", err)
		}
		if _, err := db.GetCollectionBySlug(ctx, alice.ID, "tools"); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("GetCollectionBySlug() after delete error = %v", err)
		}
		if _, err := db.GetCollectionBySlug(ctx, bob.ID, "tools"); err != nil {
			t.Errorf("bob's collection should survive: %v", err)
		}
		if _, err := db.GetRepo(ctx, 2); err != nil {
			t.Errorf("cached repo should survive collection delete: %v", err)
		}
	})
}
