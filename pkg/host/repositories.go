package host

import (
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
)

// Repository is an artifact repository declared on a project.
type Repository struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// RepositoryHandler holds the artifact repositories of a project.
type RepositoryHandler struct {
	userHome string
	repos    []Repository
}

func newRepositoryHandler(userHome string) *RepositoryHandler {
	return &RepositoryHandler{userHome: userHome}
}

// Maven declares a remote maven repository. Declaring the same URL twice is
// a no-op.
func (h *RepositoryHandler) Maven(rawURL string) Repository {
	for _, r := range h.repos {
		if r.URL == rawURL {
			return r
		}
	}
	repo := Repository{Name: "maven", URL: rawURL}
	if n := len(h.repos); n > 0 {
		repo.Name = "maven" + strconv.Itoa(n+1)
	}
	h.repos = append(h.repos, repo)
	return repo
}

// MavenLocal returns the local maven repository (~/.m2/repository) as a
// file URL. It is not added to the declared repositories.
func (h *RepositoryHandler) MavenLocal() Repository {
	dir := filepath.Join(h.userHome, ".m2", "repository")
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(dir) + "/"}
	return Repository{Name: "MavenLocal", URL: u.String()}
}

// All returns the declared repositories in declaration order.
func (h *RepositoryHandler) All() []Repository {
	return slices.Clone(h.repos)
}

