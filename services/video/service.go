package videosvc

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
)

// youtubeService runs keyword searches against the YouTube Data API,
// restricted to embeddable videos. API keys rotate through a pool to spread
// quota usage.
type youtubeService struct {
	client  *http.Client
	baseURL string
	keys    *core.KeyPool
}

var _ core.VideoSearcher = (*youtubeService)(nil)

func NewYoutubeService() *youtubeService {
	conf := core.Conf.Youtube
	return &youtubeService{
		client:  &http.Client{Timeout: conf.Timeout},
		baseURL: conf.BaseURL,
		keys:    core.NewKeyPool(conf.Keys...),
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelID    string `json:"channelId"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

func (svc *youtubeService) SearchVideos(ctx context.Context, query string, maxResults int) ([]core.VideoResult, error) {
	key := svc.keys.Next()
	if key == "" {
		return nil, errors.New("youtube search: no api keys configured")
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("videoEmbeddable", "true")
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("relevanceLanguage", "en")
	params.Set("key", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building youtube request")
	}

	res, err := svc.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending youtube request")
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading youtube response")
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("youtube search: http %d: %s", res.StatusCode, body)
	}

	var parsed searchResponse
	if err = json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "decoding youtube response")
	}

	results := make([]core.VideoResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID.VideoID == "" {
			continue
		}
		results = append(results, core.VideoResult{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			ChannelID:    item.Snippet.ChannelID,
			ChannelTitle: item.Snippet.ChannelTitle,
		})
	}
	return results, nil
}
