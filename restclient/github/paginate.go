package github

import (
	"context"
	"errors"
	"fmt"

	"github.com/kroma-labs/agnostic/restclient"
)

// ErrPaginationInconsistent is returned when a continuation page of a list
// response is not a list.
var ErrPaginationInconsistent = errors.New("github: paginated response is not a list")

// middleware applies the rate-limit gate to every request and, when
// pagination is enabled, follows list responses to the last page.
func (c *Client) middleware(next restclient.Handler) restclient.Handler {
	return func(ctx context.Context, req *restclient.Request) (*restclient.Result, error) {
		res, err := c.sendGated(ctx, next, req)
		if err != nil {
			return nil, err
		}

		if !c.paginate {
			return res, nil
		}
		first, ok := res.List()
		if !ok {
			return res, nil
		}
		return c.collectPages(ctx, next, req, res, first)
	}
}

// collectPages fetches every page after first and returns res with its
// body replaced by the concatenation of all pages, in order. The status
// and headers stay those of the first page.
func (c *Client) collectPages(
	ctx context.Context,
	next restclient.Handler,
	req *restclient.Request,
	res *restclient.Result,
	first []any,
) (*restclient.Result, error) {
	items := append([]any(nil), first...)
	pages := 1

	header := req.Header.Clone()
	header.Del("content-type")

	for link := NextLink(res.Header); link != ""; {
		page, err := c.sendGated(ctx, next, &restclient.Request{
			Method: restclient.MethodGet,
			Path:   link,
			Header: header,
		})
		if err != nil {
			return nil, err
		}
		if isRateLimited(page) {
			return nil, fmt.Errorf("%w: fetching %s", ErrRateLimitExceeded, link)
		}

		more, ok := page.List()
		if !ok {
			return nil, fmt.Errorf("%w: %s returned status %d with %T",
				ErrPaginationInconsistent, link, page.StatusCode, page.Body)
		}

		pages++
		items = append(items, more...)
		c.logger.Debug().Str("url", link).Int("items", len(more)).Msg("github page fetched")
		link = NextLink(page.Header)
	}

	c.metrics.recordPages(ctx, pages)

	out := *res
	out.Body = items
	return &out, nil
}
