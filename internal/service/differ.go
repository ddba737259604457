package service

import "github.com/sakif/starshelf/internal/model"

// Diff computes the membership change between a fresh upstream snapshot and
// the repo ids currently stored for the user.
//
// Added keeps the order of fresh (first occurrence wins when upstream repeats
// a repo across pages); Removed follows the order of current. Both sides use
// hash-set lookups, so the cost is linear in the input sizes.
func Diff(fresh []model.FetchedStar, current []int64) model.MembershipDiff {
	have := make(map[int64]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}

	diff := model.MembershipDiff{
		Added:   []model.FetchedStar{},
		Removed: []int64{},
	}

	seen := make(map[int64]struct{}, len(fresh))
	for _, star := range fresh {
		id := star.Repo.ID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := have[id]; !ok {
			diff.Added = append(diff.Added, star)
		}
	}

	for _, id := range current {
		if _, ok := seen[id]; !ok {
			diff.Removed = append(diff.Removed, id)
		}
	}

	return diff
}

// uniqueRepos returns the distinct repos of a snapshot in first-seen order.
func uniqueRepos(fresh []model.FetchedStar) []model.Repo {
	seen := make(map[int64]struct{}, len(fresh))
	repos := make([]model.Repo, 0, len(fresh))
	for _, star := range fresh {
		if _, dup := seen[star.Repo.ID]; dup {
			continue
		}
		seen[star.Repo.ID] = struct{}{}
		repos = append(repos, star.Repo)
	}
	return repos
}
