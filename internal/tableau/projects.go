package tableau

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// Projects returns one page of the site's projects. Pages are 1-based.
func (c *Client) Projects(ctx context.Context, pageNumber, pageSize int) ([]Project, Pagination, error) {
	query := url.Values{}
	query.Set("pageNumber", strconv.Itoa(pageNumber))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var resp tsResponse
	if err := c.do(ctx, http.MethodGet, c.sitePath("projects"), query, "", nil, &resp); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list projects: %w", err)
	}

	var page Pagination
	if resp.Pagination != nil {
		page = *resp.Pagination
	}
	return resp.Projects, page, nil
}

// FindProject pages through the site's projects until one is named name.
// It returns an error wrapping csv2hyper.ErrProjectNotFound when none is.
func (c *Client) FindProject(ctx context.Context, name string, pageSize int) (Project, error) {
	if pageSize <= 0 {
		pageSize = csv2hyper.ProjectPageSize
	}

	seen := 0
	for pageNumber := 1; ; pageNumber++ {
		projects, page, err := c.Projects(ctx, pageNumber, pageSize)
		if err != nil {
			return Project{}, err
		}
		for _, p := range projects {
			if p.Name == name {
				return p, nil
			}
		}

		seen += len(projects)
		if len(projects) == 0 || seen >= page.TotalAvailable {
			return Project{}, fmt.Errorf("project %q (searched %d projects): %w", name, seen, csv2hyper.ErrProjectNotFound)
		}
	}
}
