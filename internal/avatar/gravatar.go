package avatar

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Gravatar resolves avatar URLs from the gravatar service. The probe is
// best-effort; callers fall back to no avatar when it fails.
type Gravatar struct {
	client *http.Client
}

func NewGravatar() *Gravatar {
	return &Gravatar{client: &http.Client{Timeout: 5 * time.Second}}
}

// Resolve builds the gravatar URL for the email and probes it so signups
// only store URLs the service actually answers for.
func (g *Gravatar) Resolve(ctx context.Context, email string) (string, error) {
	url := URL(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("gravatar responded %d", resp.StatusCode)
	}

	return url, nil
}

// URL returns the gravatar image URL for an email: an md5 of the trimmed,
// lowercased address, with a generated fallback image.
func URL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	hash := md5.Sum([]byte(normalized))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon", hash)
}
