package service

import (
	"strings"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
)

// categories are the automatic groupings offered next to the user's own
// lists and tags. Keywords are lowercase substrings; short ones like "ai"
// and "ml" match inside longer words too.
var categories = []model.Category{
	{Slug: "ai-ml", Name: "AI / ML", Keywords: []string{
		"machine-learning", "deep-learning", "ai", "llm", "gpt", "neural", "ml", "nlp", "transformer", "diffusion",
	}},
	{Slug: "devops", Name: "DevOps", Keywords: []string{
		"devops", "ci-cd", "docker", "kubernetes", "k8s", "terraform", "ansible", "helm", "monitoring", "observability",
	}},
	{Slug: "frontend", Name: "Frontend", Keywords: []string{
		"react", "vue", "svelte", "angular", "frontend", "css", "ui-component", "tailwind", "nextjs",
	}},
	{Slug: "backend", Name: "Backend", Keywords: []string{
		"api", "backend", "server", "rest", "graphql", "microservice", "database", "orm",
	}},
	{Slug: "cli-tools", Name: "CLI Tools", Keywords: []string{
		"cli", "terminal", "command-line", "shell", "bash", "zsh",
	}},
	{Slug: "security", Name: "Security", Keywords: []string{
		"security", "authentication", "encryption", "vulnerability", "pentest", "owasp",
	}},
	{Slug: "data", Name: "Data", Keywords: []string{
		"data", "analytics", "visualization", "pandas", "sql", "etl", "pipeline", "streaming",
	}},
	{Slug: "learning", Name: "Learning", Keywords: []string{
		"tutorial", "learn", "course", "awesome", "guide", "cheatsheet", "interview", "algorithm",
	}},
	{Slug: "self-hosted", Name: "Self-Hosted", Keywords: []string{
		"self-hosted", "selfhosted", "homelab", "home-server", "docker-compose",
	}},
}

// Categories returns a copy of the category table.
func Categories() []model.Category {
	out := make([]model.Category, len(categories))
	copy(out, categories)
	return out
}

// resolveCategory turns a category slug into the keyword filter the store
// applies. "uncategorized" excludes every category's keywords.
func resolveCategory(slug string) (*model.KeywordMatch, error) {
	if slug == model.CategoryUncategorized {
		var all []string
		for _, c := range categories {
			all = append(all, c.Keywords...)
		}
		return &model.KeywordMatch{Keywords: all, Exclude: true}, nil
	}
	for _, c := range categories {
		if c.Slug == slug {
			return &model.KeywordMatch{Keywords: c.Keywords}, nil
		}
	}
	return nil, apperror.ValidationFailed("category", "unknown category "+strings.TrimSpace(slug))
}
