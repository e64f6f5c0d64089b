// Package github is a restclient.Client preset for the GitHub REST API
// that waits out exhausted rate limits and can follow paginated list
// responses to the end.
//
//	gh, err := github.New(
//	    github.WithToken(os.Getenv("GITHUB_TOKEN")),
//	    github.WithPaginate(true),
//	)
//	if err != nil {
//	    return err
//	}
//
//	// Every open issue, across all pages.
//	res, err := gh.Path("repos", "octocat", "hello-world", "issues").
//	    Get(ctx, restclient.Query("state", "open"))
//	issues, _ := res.List()
//
// Rate limiting: GitHub reports the remaining quota in X-RateLimit-Remaining
// and the reset time (epoch seconds) in X-RateLimit-Reset. When the last
// response showed an exhausted quota, the next request waits until the
// reset time. A 403 received with an exhausted quota is retried after the
// wait. Other 403 responses are returned unchanged.
package github
