package core

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrPhoneInvalid is returned by a PhoneVerifier for unusable numbers.
	ErrPhoneInvalid = errors.New("invalid phone number")
	// ErrPhoneFraudulent is returned by a PhoneVerifier for blocked numbers.
	ErrPhoneFraudulent = errors.New("phone number blocked as fraudulent")
)

type (
	// TextGenerator is any AI service that can complete a prompt.
	// GenerateJSON requests machine-readable output; callers still run the
	// returned text through a strict decode step since providers are not
	// trusted to honor the format.
	TextGenerator interface {
		GenerateText(ctx context.Context, prompt string) (string, error)
		GenerateJSON(ctx context.Context, prompt string) (string, error)
	}

	VideoResult struct {
		ID           string
		Title        string
		ChannelID    string
		ChannelTitle string
	}

	// VideoSearcher is any service that can run a ranked keyword video search.
	VideoSearcher interface {
		SearchVideos(ctx context.Context, query string, maxResults int) ([]VideoResult, error)
	}

	// ThumbnailSearcher returns a landscape image URL for a keyword,
	// or "" when nothing suitable is found.
	ThumbnailSearcher interface {
		SearchThumbnail(ctx context.Context, query string) (string, error)
	}

	// PhoneVerifier wraps an SMS OTP verification service.
	PhoneVerifier interface {
		StartVerification(ctx context.Context, phoneNumber string) error
		CheckVerification(ctx context.Context, phoneNumber, code string) (bool, error)
	}

	// PDFRenderer converts an HTML document into PDF bytes.
	PDFRenderer interface {
		RenderHTML(ctx context.Context, html string) ([]byte, error)
	}
)
