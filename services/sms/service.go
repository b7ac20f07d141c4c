package smssvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
)

// Twilio error codes worth mapping to domain errors.
const (
	codePhoneInvalid    = 21614
	codePhoneFraudulent = 21612
)

// twilioVerifyService sends and checks SMS one-time codes through the Twilio
// Verify API.
type twilioVerifyService struct {
	client     *http.Client
	baseURL    string
	accountSID string
	authToken  string
	serviceSID string
}

var _ core.PhoneVerifier = (*twilioVerifyService)(nil)

func NewTwilioVerifyService() *twilioVerifyService {
	conf := core.Conf.Twilio
	return &twilioVerifyService{
		client:     &http.Client{Timeout: conf.Timeout},
		baseURL:    conf.BaseURL,
		accountSID: conf.AccountSID,
		authToken:  conf.AuthToken,
		serviceSID: conf.VerifyServiceSID,
	}
}

func (svc *twilioVerifyService) StartVerification(ctx context.Context, phoneNumber string) error {
	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("Channel", "sms")

	_, err := svc.post(ctx, fmt.Sprintf("/Services/%s/Verifications", svc.serviceSID), form)
	return err
}

func (svc *twilioVerifyService) CheckVerification(ctx context.Context, phoneNumber, code string) (bool, error) {
	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("Code", code)

	body, err := svc.post(ctx, fmt.Sprintf("/Services/%s/VerificationCheck", svc.serviceSID), form)
	if err != nil {
		return false, err
	}

	var parsed struct {
		Status string `json:"status"`
	}
	if err = json.Unmarshal(body, &parsed); err != nil {
		return false, errors.Wrap(err, "decoding verification check")
	}
	return parsed.Status == "approved", nil
}

func (svc *twilioVerifyService) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "building twilio request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(svc.accountSID, svc.authToken)

	res, err := svc.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending twilio request")
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading twilio response")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, twilioError(res.StatusCode, body)
	}
	return body, nil
}

// twilioError maps Twilio's documented error codes for unusable and
// fraud-blocked numbers onto domain errors; anything else surfaces as is.
func twilioError(status int, body []byte) error {
	var parsed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch parsed.Code {
		case codePhoneInvalid:
			return core.ErrPhoneInvalid
		case codePhoneFraudulent:
			return core.ErrPhoneFraudulent
		}
		if parsed.Message != "" {
			return errors.Errorf("twilio: %s (code %d)", parsed.Message, parsed.Code)
		}
	}
	return errors.Errorf("twilio: http %d: %s", status, body)
}
