package imagesvc

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
)

// pexelsService fetches a landscape stock photo for a search term, used as
// the course thumbnail. Callers treat an empty URL as "no thumbnail".
type pexelsService struct {
	client  *http.Client
	baseURL string
	keys    *core.KeyPool
}

var _ core.ThumbnailSearcher = (*pexelsService)(nil)

func NewPexelsService() *pexelsService {
	conf := core.Conf.Pexels
	return &pexelsService{
		client:  &http.Client{Timeout: conf.Timeout},
		baseURL: conf.BaseURL,
		keys:    core.NewKeyPool(conf.Keys...),
	}
}

type photoResponse struct {
	Photos []struct {
		Src struct {
			Medium string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

func (svc *pexelsService) SearchThumbnail(ctx context.Context, query string) (string, error) {
	key := svc.keys.Next()
	if key == "" {
		return "", errors.New("pexels search: no api keys configured")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "building pexels request")
	}
	req.Header.Set("Authorization", key)

	res, err := svc.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "sending pexels request")
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading pexels response")
	}
	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("pexels search: http %d: %s", res.StatusCode, body)
	}

	var parsed photoResponse
	if err = json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "decoding pexels response")
	}
	if len(parsed.Photos) == 0 {
		return "", nil
	}
	return parsed.Photos[0].Src.Medium, nil
}
