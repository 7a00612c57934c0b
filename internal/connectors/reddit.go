package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/painradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	redditBaseURL   = "https://www.reddit.com"
	redditUserAgent = "painradar-bot/1.0"
)

// complaintKeywords mark posts worth feeding into the pipeline even before
// the sentiment pass runs.
var complaintKeywords = []string{
	"hate", "frustrated", "annoying", "terrible",
	"worst", "awful", "disappointed", "wish there was",
	"sucks", "useless", "broken", "doesn't work",
	"pain", "problem", "issue", "bug", "fail",
}

// RedditConnector searches subreddits for complaint posts through the public
// listing API and emits candidate items. It never writes to storage itself.
type RedditConnector struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewRedditConnector(logger *logrus.Logger) *RedditConnector {
	return &RedditConnector{
		baseURL: redditBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// NewRedditConnectorWithBaseURL is used by tests to point at a stub server.
func NewRedditConnectorWithBaseURL(baseURL string, logger *logrus.Logger) *RedditConnector {
	c := NewRedditConnector(logger)
	c.baseURL = baseURL
	return c
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	CreatedUTC  float64 `json:"created_utc"`
}

// SearchComplaints searches the subreddit for each keyword and keeps posts
// whose content carries complaint indicators. Duplicate hits across keywords
// collapse on the post id; the ingest gate deduplicates across runs anyway.
func (c *RedditConnector) SearchComplaints(ctx context.Context, subreddit string, keywords []string, limit int) ([]models.CandidateItem, error) {
	if len(keywords) == 0 {
		keywords = []string{"frustrated", "hate", "wish there was"}
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	seen := make(map[string]bool)
	var candidates []models.CandidateItem

	for _, keyword := range keywords {
		posts, err := c.search(ctx, subreddit, keyword, limit)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"subreddit": subreddit,
				"keyword":   keyword,
			}).Error("Reddit search failed")
			continue
		}

		for _, post := range posts {
			if seen[post.ID] {
				continue
			}

			content := post.Title + "\n\n" + post.Selftext
			if !hasComplaintIndicators(content) {
				continue
			}
			seen[post.ID] = true

			created := time.Unix(int64(post.CreatedUTC), 0).UTC()
			candidates = append(candidates, models.CandidateItem{
				ExternalID:      post.ID,
				Source:          "reddit",
				Content:         content,
				Author:          post.Author,
				URL:             "https://reddit.com" + post.Permalink,
				Subreddit:       subreddit,
				OriginTimestamp: &created,
				Metadata: map[string]interface{}{
					"score":           post.Score,
					"num_comments":    post.NumComments,
					"upvote_ratio":    post.UpvoteRatio,
					"keyword_matched": keyword,
				},
			})
		}

		c.logger.WithFields(logrus.Fields{
			"subreddit": subreddit,
			"keyword":   keyword,
			"total":     len(candidates),
		}).Info("Reddit keyword search completed")
	}

	return candidates, nil
}

func (c *RedditConnector) search(ctx context.Context, subreddit, keyword string, limit int) ([]redditPost, error) {
	query := url.Values{}
	query.Set("q", keyword)
	query.Set("restrict_sr", "1")
	query.Set("sort", "new")
	query.Set("t", "week")
	query.Set("limit", fmt.Sprintf("%d", limit))

	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", c.baseURL, url.PathEscape(subreddit), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", redditUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned status %d: %s", resp.StatusCode, string(body))
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

func hasComplaintIndicators(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, keyword := range complaintKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
