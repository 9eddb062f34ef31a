package spotify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"context"
)

// FetchAllLiked retrieves the user's complete saved-track library in
// provider order. Pagination advances an offset cursor until a page returns
// fewer items than requested.
func (c *Client) FetchAllLiked(ctx context.Context) ([]Track, error) {
	var tracks []Track
	offset := 0

	for {
		query := url.Values{
			"limit":  {strconv.Itoa(c.pageSize)},
			"offset": {strconv.Itoa(offset)},
		}

		body, err := c.doRequest(ctx, http.MethodGet, "/me/tracks", query)
		if err != nil {
			return nil, fmt.Errorf("fetching saved tracks at offset %d: %w", offset, err)
		}

		var page savedTracksPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parsing saved tracks page: %w", err)
		}

		for _, item := range page.Items {
			tracks = append(tracks, convertSaved(item))
		}

		c.logger.Debug("fetched saved tracks", "count", len(tracks), "total", page.Total)

		if len(page.Items) < c.pageSize {
			return tracks, nil
		}
		offset += c.pageSize
	}
}
