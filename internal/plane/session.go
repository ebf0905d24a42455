package plane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Session is one authenticated browser-style session: a cookie jar holding
// the session cookie plus the CSRF token the write endpoints demand. A
// session is not safe for concurrent use; workers check sessions out of the
// client's pool instead of sharing one.
type Session struct {
	http *http.Client
	csrf string
}

func newSession() (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Session{
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			// The sign-in endpoint answers 302 on success; following the
			// redirect would hide the status we check.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// authenticate runs the CSRF + sign-in flow for the given credentials.
func (s *Session) authenticate(ctx context.Context, baseURL, webURL, email, password string) error {
	csrfReq, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/auth/get-csrf-token/", nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(csrfReq)
	if err != nil {
		return fmt.Errorf("get CSRF token: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read CSRF response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get CSRF token: status %d", resp.StatusCode)
	}

	var csrfBody struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(body, &csrfBody); err != nil || csrfBody.CSRFToken == "" {
		return fmt.Errorf("CSRF token not found in response")
	}
	s.csrf = csrfBody.CSRFToken

	form := url.Values{
		"csrfmiddlewaretoken": {s.csrf},
		"email":               {email},
		"password":            {password},
	}
	loginReq, err := http.NewRequestWithContext(ctx, "POST",
		baseURL+"/auth/sign-in/", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	loginReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	loginReq.Header.Set("Referer", webURL)

	loginResp, err := s.http.Do(loginReq)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	loginBody, _ := io.ReadAll(loginResp.Body)
	loginResp.Body.Close()

	// The auth endpoint redirects on success; some deployments answer 200.
	if loginResp.StatusCode != http.StatusFound && loginResp.StatusCode != http.StatusOK {
		return fmt.Errorf("sign in failed for %s: status %d: %s",
			email, loginResp.StatusCode, truncateBody(string(loginBody)))
	}

	// The jar may now hold a fresher csrftoken cookie than the bootstrap one.
	if cookie := s.cookieValue(baseURL, "csrftoken"); cookie != "" {
		s.csrf = cookie
	}
	return nil
}

func (s *Session) cookieValue(baseURL, name string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	for _, c := range s.http.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func truncateBody(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

// sessionPool is a fixed-size checkout/checkin pool of authenticated
// sessions. It replaces the original re-authenticate-per-call pattern: each
// worker borrows a session for the duration of one call and returns it.
type sessionPool struct {
	free chan *Session
}

func newSessionPool(ctx context.Context, size int, open func(context.Context) (*Session, error)) (*sessionPool, error) {
	if size < 1 {
		size = 1
	}
	p := &sessionPool{free: make(chan *Session, size)}
	for i := 0; i < size; i++ {
		s, err := open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open session %d/%d: %w", i+1, size, err)
		}
		p.free <- s
	}
	return p, nil
}

func (p *sessionPool) acquire(ctx context.Context) (*Session, error) {
	select {
	case s := <-p.free:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *sessionPool) release(s *Session) {
	p.free <- s
}
