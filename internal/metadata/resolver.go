package metadata

import "context"

// Resolved is the raw output of a Resolver.
type Resolved struct {
	URLs        []string `json:"urls"`
	Titles      []string `json:"titles"`
	CoverURL    string   `json:"cover_path"`
	Name        string   `json:"name"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
}

// Resolver discovers a publication's chapter index and front matter.
// Chapter URLs and titles are returned in reading order.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*Resolved, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, url string) (*Resolved, error)

func (f ResolverFunc) Resolve(ctx context.Context, url string) (*Resolved, error) {
	return f(ctx, url)
}
