package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// defaultTimeout is the budget for one post resolution, end to end.
const defaultTimeout = 15 * time.Second

var postURLRe = regexp.MustCompile(`(?i)^https?://(?:[\w-]+\.)*(?:twitter\.com|x\.com)/[\w-]+/status(?:es)?/(\d+)`)

// Client resolves post URLs against a tweet-resolution API.
type Client struct {
	baseURL string
	bearer  string
	client  *http.Client
}

// NewClient builds a resolution client. baseURL defaults to the public API;
// a non-positive timeout falls back to defaultTimeout.
func NewClient(baseURL, bearerToken string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.x.com"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		bearer:  bearerToken,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type postResponse struct {
	Data struct {
		Text          string `json:"text"`
		AuthorID      string `json:"author_id"`
		PublicMetrics struct {
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
			LikeCount    int `json:"like_count"`
			QuoteCount   int `json:"quote_count"`
		} `json:"public_metrics"`
		Entities struct {
			URLs []struct {
				ExpandedURL string `json:"expanded_url"`
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"urls"`
		} `json:"entities"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"users"`
		Tweets []struct {
			Text string `json:"text"`
		} `json:"tweets"`
	} `json:"includes"`
}

// FetchPost resolves a post URL into one text blob: author name and bio,
// post body, linked article title/description, any quoted post, and
// engagement counters.
func (c *Client) FetchPost(ctx context.Context, url string) (string, error) {
	m := postURLRe.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", fmt.Errorf("unrecognized post URL: %s", url)
	}
	postID := m[1]

	endpoint := fmt.Sprintf(
		"%s/2/tweets/%s?expansions=author_id,referenced_tweets.id&tweet.fields=text,public_metrics,entities&user.fields=name,description",
		c.baseURL, postID,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch post: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch post: status %d body=%q", resp.StatusCode, string(body))
	}

	var pr postResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("decode post response: %w", err)
	}
	if pr.Data.Text == "" {
		return "", ErrNotFound
	}

	return assembleBlob(&pr), nil
}

func assembleBlob(pr *postResponse) string {
	var b strings.Builder

	for _, u := range pr.Includes.Users {
		if u.ID != pr.Data.AuthorID {
			continue
		}
		fmt.Fprintf(&b, "Author: %s\n", u.Name)
		if u.Description != "" {
			fmt.Fprintf(&b, "Bio: %s\n", u.Description)
		}
		break
	}

	fmt.Fprintf(&b, "\nPost: %s\n", pr.Data.Text)

	for _, u := range pr.Data.Entities.URLs {
		if u.Title == "" && u.Description == "" {
			continue
		}
		fmt.Fprintf(&b, "\nLinked article: %s\n%s\n", u.Title, u.Description)
	}

	for _, t := range pr.Includes.Tweets {
		if t.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "\nQuoted post: %s\n", t.Text)
	}

	pm := pr.Data.PublicMetrics
	fmt.Fprintf(&b, "\nEngagement: %d likes, %d retweets, %d replies, %d quotes\n",
		pm.LikeCount, pm.RetweetCount, pm.ReplyCount, pm.QuoteCount)

	return b.String()
}
