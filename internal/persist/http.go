// Package persist delivers selection snapshots to the booking server and,
// optionally, to the message broker.  Every sink is best effort: callers log
// the returned error and carry on.
package persist

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/iliyamo/harbor-booking/internal/model"
)

const (
    // CSRFCookie is the cookie holding the booking server's CSRF token.
    CSRFCookie = "csrftoken"
    // CSRFHeader is the header the booking server checks the token against.
    CSRFHeader = "X-CSRFToken"
)

// Credentials are the browser credentials captured when the page view was
// opened.  They are replayed so the booking server attributes the snapshot to
// the right session.
type Credentials struct {
    CSRFToken string
    Cookies   []*http.Cookie
}

// CredentialsFromRequest captures the cookies of r and the CSRF token found in
// them.
func CredentialsFromRequest(r *http.Request) Credentials {
    cookies := r.Cookies()
    return Credentials{CSRFToken: CSRFTokenFromCookies(cookies), Cookies: cookies}
}

// CSRFTokenFromCookies returns the URL-decoded csrftoken cookie, or "".
func CSRFTokenFromCookies(cookies []*http.Cookie) string {
    for _, c := range cookies {
        if c.Name != CSRFCookie {
            continue
        }
        v, err := url.QueryUnescape(c.Value)
        if err != nil {
            return c.Value
        }
        return v
    }
    return ""
}

// HTTPPersister posts snapshots to the store-booking-selection endpoint.
type HTTPPersister struct {
    client   *http.Client
    endpoint string
    creds    Credentials
}

// NewHTTPPersister targets baseURL+path.  A nil client gets a 10s timeout.
func NewHTTPPersister(baseURL, path string, client *http.Client, creds Credentials) *HTTPPersister {
    if client == nil {
        client = &http.Client{Timeout: 10 * time.Second}
    }
    return &HTTPPersister{
        client:   client,
        endpoint: strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"),
        creds:    creds,
    }
}

// Endpoint returns the URL snapshots are posted to.
func (p *HTTPPersister) Endpoint() string { return p.endpoint }

// Persist sends payload.  The response body is drained and ignored; only the
// status code matters.
func (p *HTTPPersister) Persist(ctx context.Context, payload model.SelectionPayload) error {
    body, err := json.Marshal(payload)
    if err != nil {
        return fmt.Errorf("encode selection: %w", err)
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
    if err != nil {
        return fmt.Errorf("build request: %w", err)
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set(CSRFHeader, p.creds.CSRFToken)
    for _, c := range p.creds.Cookies {
        req.AddCookie(c)
    }

    resp, err := p.client.Do(req)
    if err != nil {
        return fmt.Errorf("post selection: %w", err)
    }
    defer resp.Body.Close()
    _, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return fmt.Errorf("post selection: unexpected status %d", resp.StatusCode)
    }
    return nil
}
