// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package web_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/authkeep/internal/access"
)

type response struct {
	status int
	body   map[string]any
	header http.Header
}

type browser struct {
	base   string
	client *http.Client
}

func newBrowser(base string) *browser {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &browser{
		base: base,
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
			Transport: &http.Transport{DisableKeepAlives: true},
		},
	}
}

func (b *browser) do(method, path string, values url.Values) response {
	var body io.Reader
	if values != nil {
		body = strings.NewReader(values.Encode())
	}
	req, err := http.NewRequest(method, b.base+path, body)
	Expect(err).NotTo(HaveOccurred())
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := b.client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	out := response{status: resp.StatusCode, header: resp.Header}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		Expect(json.Unmarshal(raw, &out.body)).To(Succeed())
	}
	return out
}

func creds(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

var _ = Describe("Authentication flow", func() {
	var (
		server *httptest.Server
		b      *browser
	)

	BeforeEach(func() {
		f := newFixture(GinkgoT(), access.TypeSession, 0)
		server = httptest.NewServer(f.handler)
		b = newBrowser(server.URL)
	})

	AfterEach(func() {
		server.Close()
	})

	It("registers, logs in and out, and resets the password", func() {
		By("registering a user")
		r := b.do(http.MethodPost, "/users", creds("a@b.com", "pw1"))
		Expect(r.status).To(Equal(http.StatusOK))
		Expect(r.body).To(HaveKeyWithValue("message", "user created"))

		By("rejecting a wrong password")
		r = b.do(http.MethodPost, "/sessions", creds("a@b.com", "wrong"))
		Expect(r.status).To(Equal(http.StatusUnauthorized))

		By("logging in")
		r = b.do(http.MethodPost, "/sessions", creds("a@b.com", "pw1"))
		Expect(r.status).To(Equal(http.StatusOK))
		Expect(r.body).To(HaveKeyWithValue("message", "logged in"))

		By("reading the profile through the cookie")
		r = b.do(http.MethodGet, "/profile", nil)
		Expect(r.status).To(Equal(http.StatusOK))
		Expect(r.body).To(HaveKeyWithValue("email", "a@b.com"))

		By("logging out")
		r = b.do(http.MethodDelete, "/sessions", nil)
		Expect(r.status).To(Equal(http.StatusFound))
		Expect(r.header.Get("Location")).To(Equal("/"))

		By("losing access to the profile")
		r = b.do(http.MethodGet, "/profile", nil)
		Expect(r.status).To(Equal(http.StatusForbidden))

		By("requesting a reset token")
		r = b.do(http.MethodPost, "/reset_password", url.Values{"email": {"a@b.com"}})
		Expect(r.status).To(Equal(http.StatusOK))
		token, ok := r.body["reset_token"].(string)
		Expect(ok).To(BeTrue())
		Expect(token).NotTo(BeEmpty())

		By("updating the password")
		r = b.do(http.MethodPut, "/reset_password", url.Values{
			"email":        {"a@b.com"},
			"reset_token":  {token},
			"new_password": {"pw2"},
		})
		Expect(r.status).To(Equal(http.StatusOK))
		Expect(r.body).To(HaveKeyWithValue("message", "Password updated"))

		By("rejecting the old password")
		r = b.do(http.MethodPost, "/sessions", creds("a@b.com", "pw1"))
		Expect(r.status).To(Equal(http.StatusUnauthorized))

		By("accepting the new password")
		r = b.do(http.MethodPost, "/sessions", creds("a@b.com", "pw2"))
		Expect(r.status).To(Equal(http.StatusOK))
	})

	It("guards the API with the session cookie", func() {
		Expect(b.do(http.MethodGet, "/api/v1/status", nil).status).To(Equal(http.StatusOK))
		Expect(b.do(http.MethodGet, "/api/v1/users/me", nil).status).To(Equal(http.StatusUnauthorized))

		Expect(b.do(http.MethodPost, "/users", creds("a@b.com", "pw1")).status).To(Equal(http.StatusOK))
		r := b.do(http.MethodPost, "/api/v1/auth_session/login", creds("a@b.com", "pw1"))
		Expect(r.status).To(Equal(http.StatusOK))
		Expect(r.body).To(HaveKeyWithValue("email", "a@b.com"))

		r = b.do(http.MethodGet, "/api/v1/users/me", nil)
		Expect(r.status).To(Equal(http.StatusOK))
		Expect(r.body).To(HaveKey("id"))

		Expect(b.do(http.MethodDelete, "/api/v1/auth_session/logout", nil).status).To(Equal(http.StatusOK))
		Expect(b.do(http.MethodGet, "/api/v1/users/me", nil).status).To(Equal(http.StatusUnauthorized))
	})

	It("gives a second login precedence over the first", func() {
		Expect(b.do(http.MethodPost, "/users", creds("a@b.com", "pw1")).status).To(Equal(http.StatusOK))
		Expect(b.do(http.MethodPost, "/sessions", creds("a@b.com", "pw1")).status).To(Equal(http.StatusOK))

		other := newBrowser(server.URL)
		Expect(other.do(http.MethodPost, "/sessions", creds("a@b.com", "pw1")).status).To(Equal(http.StatusOK))

		Expect(b.do(http.MethodGet, "/profile", nil).status).To(Equal(http.StatusForbidden))
		Expect(other.do(http.MethodGet, "/profile", nil).status).To(Equal(http.StatusOK))
	})
})
