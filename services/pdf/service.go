package pdfsvc

import (
	"bytes"
	"context"
	"io/ioutil"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
)

// gotenbergService converts HTML into A4 PDFs through a Gotenberg instance's
// Chromium route. The print margins leave room for the branded header and
// footer baked into the export layout.
type gotenbergService struct {
	client  *http.Client
	baseURL string
}

var _ core.PDFRenderer = (*gotenbergService)(nil)

func NewGotenbergService() *gotenbergService {
	conf := core.Conf.PDF
	return &gotenbergService{
		client:  &http.Client{Timeout: conf.Timeout},
		baseURL: conf.BaseURL,
	}
}

func (svc *gotenbergService) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)

	part, err := form.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, errors.Wrap(err, "building pdf form")
	}
	if _, err = part.Write([]byte(html)); err != nil {
		return nil, errors.Wrap(err, "writing pdf form")
	}
	for field, value := range map[string]string{
		"paperWidth":      "8.27",
		"paperHeight":     "11.7",
		"marginTop":       "1",
		"marginBottom":    "1",
		"printBackground": "true",
	} {
		if err = form.WriteField(field, value); err != nil {
			return nil, errors.Wrap(err, "writing pdf form field")
		}
	}
	if err = form.Close(); err != nil {
		return nil, errors.Wrap(err, "closing pdf form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, errors.Wrap(err, "building pdf request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	res, err := svc.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending pdf request")
	}
	defer res.Body.Close()

	pdf, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading pdf response")
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("pdf render: http %d: %s", res.StatusCode, pdf)
	}
	return pdf, nil
}
