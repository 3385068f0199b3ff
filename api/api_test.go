package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentbase/pkg/auth"
	"github.com/papercomputeco/agentbase/pkg/catalog"
	"github.com/papercomputeco/agentbase/pkg/llm"
	"github.com/papercomputeco/agentbase/pkg/logger"
	"github.com/papercomputeco/agentbase/pkg/storage"
	"github.com/papercomputeco/agentbase/pkg/storage/inmemory"
)

// tokenVerifier maps fixed tokens to users.
type tokenVerifier map[string]*auth.User

func (v tokenVerifier) Verify(_ context.Context, token string) (*auth.User, error) {
	if u, ok := v[token]; ok {
		return u, nil
	}
	return nil, auth.ErrUnauthorized
}

type fakeOAuth struct {
	exchangeErr  error
	gotCode      string
	gotVerifier  string
	signedOut    string
	authorizeArg []string
}

func (f *fakeOAuth) AuthorizeURL(provider, redirectTo, challenge string) string {
	f.authorizeArg = []string{provider, redirectTo, challenge}
	return "https://auth.example.com/authorize?provider=" + provider
}

func (f *fakeOAuth) ExchangeCode(_ context.Context, code, verifier string) (*auth.Session, error) {
	f.gotCode, f.gotVerifier = code, verifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &auth.Session{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: 3600}, nil
}

func (f *fakeOAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = token
	return errors.New("logout endpoint unavailable")
}

type recordingChat struct {
	users []*auth.User
}

func (r *recordingChat) Handle(c *fiber.Ctx, user *auth.User) error {
	r.users = append(r.users, user)
	return c.SendString("hello")
}

var _ = Describe("Server", func() {
	var (
		server *Server
		driver *inmemory.Driver
		oauth  *fakeOAuth
		chat   *recordingChat
		alice  = &auth.User{ID: "alice", Email: "alice@example.com"}
		bob    = &auth.User{ID: "bob"}
	)

	newServer := func(rateLimit int) {
		var err error
		server, err = NewServer(Config{
			ListenAddr: ":0",
			SiteURL:    "https://agentbase.example.com/",
			RateLimit:  rateLimit,
			Verifier:   tokenVerifier{"alice-token": alice, "bob-token": bob},
			OAuth:      oauth,
			Chat:       chat,
		}, driver, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	}

	do := func(method, target, token, body string) *http.Response {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, r)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := server.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		oauth = &fakeOAuth{}
		chat = &recordingChat{}
		newServer(0)
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("NewServer", func() {
		It("requires a driver", func() {
			_, err := NewServer(Config{Verifier: tokenVerifier{}}, nil, logger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("requires a verifier", func() {
			_, err := NewServer(Config{}, driver, logger.Nop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GET /ping", func() {
		It("answers without authentication", func() {
			resp := do("GET", "/ping", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body string
			decode(resp, &body)
			Expect(body).To(Equal("pong"))
		})
	})

	Describe("GET /healthz", func() {
		It("reports ok when storage answers", func() {
			resp := do("GET", "/healthz", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("authentication", func() {
		It("rejects requests without a token", func() {
			resp := do("GET", "/api/me", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			var body llm.ErrorResponse
			decode(resp, &body)
			Expect(body.Error).To(Equal("Unauthorized"))
		})

		It("rejects unknown tokens", func() {
			resp := do("GET", "/api/me", "nope", "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts a bearer token", func() {
			resp := do("GET", "/api/me", "alice-token", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var me auth.User
			decode(resp, &me)
			Expect(me).To(Equal(*alice))
		})

		It("accepts the session cookie", func() {
			req := httptest.NewRequest("GET", "/api/me", nil)
			req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "bob-token"})
			resp, err := server.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var me auth.User
			decode(resp, &me)
			Expect(me.ID).To(Equal("bob"))
		})
	})

	Describe("models", func() {
		It("lists the whole catalog", func() {
			resp := do("GET", "/api/models", "alice-token", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body ModelsResponse
			decode(resp, &body)
			Expect(body.Models).To(HaveLen(len(catalog.All())))
			Expect(body.Default).To(Equal(catalog.DefaultModelID))
		})

		It("filters by tier", func() {
			resp := do("GET", "/api/models?tier=free", "alice-token", "")
			var body ModelsResponse
			decode(resp, &body)
			Expect(body.Models).To(HaveLen(len(catalog.Free())))
			for _, m := range body.Models {
				Expect(m.IsPremium).To(BeFalse())
			}
		})

		It("rejects an unknown tier", func() {
			resp := do("GET", "/api/models?tier=gold", "alice-token", "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns a single model", func() {
			resp := do("GET", "/api/models/"+catalog.DefaultModelID, "alice-token", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var m catalog.Model
			decode(resp, &m)
			Expect(m.ID).To(Equal(catalog.DefaultModelID))
		})

		It("returns 404 for an unknown model", func() {
			resp := do("GET", "/api/models/gpt-2", "alice-token", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("conversations", func() {
		var conv *storage.Conversation

		BeforeEach(func() {
			var err error
			conv, err = driver.CreateConversation(context.Background(), "alice", "Trip planning")
			Expect(err).NotTo(HaveOccurred())
		})

		It("creates a conversation with the default title", func() {
			resp := do("POST", "/api/conversations", "alice-token", "{}")
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var created storage.Conversation
			decode(resp, &created)
			Expect(created.UserID).To(Equal("alice"))
			Expect(created.Title).To(Equal(storage.DefaultTitle))
		})

		It("creates a conversation with a title", func() {
			resp := do("POST", "/api/conversations", "alice-token", `{"title":"Recipes"}`)
			var created storage.Conversation
			decode(resp, &created)
			Expect(created.Title).To(Equal("Recipes"))
		})

		It("lists only the caller's conversations", func() {
			_, err := driver.CreateConversation(context.Background(), "bob", "")
			Expect(err).NotTo(HaveOccurred())

			resp := do("GET", "/api/conversations", "alice-token", "")
			var convs []storage.Conversation
			decode(resp, &convs)
			Expect(convs).To(HaveLen(1))
			Expect(convs[0].ID).To(Equal(conv.ID))
		})

		It("returns an empty list rather than null", func() {
			resp := do("GET", "/api/conversations", "bob-token", "")
			defer resp.Body.Close()
			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("[]"))
		})

		It("returns a conversation with its ordered messages", func() {
			for _, m := range []struct{ role, content string }{
				{storage.RoleUser, "where to go?"},
				{storage.RoleAssistant, "Lisbon"},
			} {
				_, err := driver.CreateMessage(context.Background(), &storage.Message{
					ConversationID: conv.ID,
					UserID:         "alice",
					Role:           m.role,
					Content:        m.content,
				})
				Expect(err).NotTo(HaveOccurred())
			}

			resp := do("GET", "/api/conversations/"+conv.ID, "alice-token", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body ConversationResponse
			decode(resp, &body)
			Expect(body.Conversation.ID).To(Equal(conv.ID))
			Expect(body.Messages).To(HaveLen(2))
			Expect(body.Messages[0].Content).To(Equal("where to go?"))
			Expect(body.Messages[1].Content).To(Equal("Lisbon"))
		})

		It("returns 404 for a missing conversation", func() {
			resp := do("GET", "/api/conversations/missing", "alice-token", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 403 for another user's conversation", func() {
			resp := do("GET", "/api/conversations/"+conv.ID, "bob-token", "")
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})

		It("renames and favorites a conversation", func() {
			resp := do("PATCH", "/api/conversations/"+conv.ID, "alice-token", `{"title":"  Lisbon trip ","is_favorite":true}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var updated storage.Conversation
			decode(resp, &updated)
			Expect(updated.Title).To(Equal("Lisbon trip"))
			Expect(updated.IsFavorite).To(BeTrue())
		})

		It("rejects a blank title", func() {
			resp := do("PATCH", "/api/conversations/"+conv.ID, "alice-token", `{"title":"   "}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			stored, err := driver.GetConversation(context.Background(), conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Title).To(Equal("Trip planning"))
		})

		It("does not let another user patch", func() {
			resp := do("PATCH", "/api/conversations/"+conv.ID, "bob-token", `{"title":"mine"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})

		It("deletes a conversation", func() {
			resp := do("DELETE", "/api/conversations/"+conv.ID, "alice-token", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			_, err := driver.GetConversation(context.Background(), conv.ID)
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("batch deletes only owned conversations", func() {
			other, err := driver.CreateConversation(context.Background(), "bob", "")
			Expect(err).NotTo(HaveOccurred())

			body := `{"ids":["` + conv.ID + `","` + other.ID + `"]}`
			resp := do("POST", "/api/conversations/batch-delete", "alice-token", body)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result batchDeleteResponse
			decode(resp, &result)
			Expect(result.Deleted).To(Equal(1))

			_, err = driver.GetConversation(context.Background(), other.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("appends and lists messages", func() {
			resp := do("POST", "/api/conversations/"+conv.ID+"/messages", "alice-token",
				`{"role":"user","content":"hi"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var created storage.Message
			decode(resp, &created)
			Expect(created.ID).NotTo(BeEmpty())
			Expect(created.UserID).To(Equal("alice"))

			resp = do("GET", "/api/conversations/"+conv.ID+"/messages", "alice-token", "")
			var msgs []storage.Message
			decode(resp, &msgs)
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Content).To(Equal("hi"))
		})

		It("rejects an unknown message role", func() {
			resp := do("POST", "/api/conversations/"+conv.ID+"/messages", "alice-token",
				`{"role":"tool","content":"hi"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/chat", func() {
		It("hands the authenticated user to the chat handler", func() {
			resp := do("POST", "/api/chat", "alice-token", `{"messages":[]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(chat.users).To(ConsistOf(alice))
		})

		It("limits requests per user", func() {
			newServer(1)

			Expect(do("POST", "/api/chat", "alice-token", "{}").StatusCode).To(Equal(http.StatusOK))
			Expect(do("POST", "/api/chat", "alice-token", "{}").StatusCode).To(Equal(http.StatusTooManyRequests))
			Expect(do("POST", "/api/chat", "bob-token", "{}").StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("sign-in flow", func() {
		It("redirects to the provider and stores the verifier", func() {
			resp := do("GET", "/auth/login", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusFound))
			Expect(resp.Header.Get("Location")).To(HavePrefix("https://auth.example.com/authorize"))

			Expect(oauth.authorizeArg[0]).To(Equal(OAuthProvider))
			Expect(oauth.authorizeArg[1]).To(Equal("https://agentbase.example.com/auth/callback"))

			var verifier string
			for _, ck := range resp.Cookies() {
				if ck.Name == verifierCookie {
					verifier = ck.Value
				}
			}
			Expect(verifier).NotTo(BeEmpty())
			Expect(oauth.authorizeArg[2]).To(Equal(auth.ChallengeS256(verifier)))
		})

		It("exchanges the code and sets session cookies", func() {
			req := httptest.NewRequest("GET", "/auth/callback?code="+url.QueryEscape("abc"), nil)
			req.AddCookie(&http.Cookie{Name: verifierCookie, Value: "verifier-1"})
			resp, err := server.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.StatusCode).To(Equal(http.StatusFound))
			Expect(resp.Header.Get("Location")).To(Equal("/chat"))
			Expect(oauth.gotCode).To(Equal("abc"))
			Expect(oauth.gotVerifier).To(Equal("verifier-1"))

			cookies := map[string]string{}
			for _, ck := range resp.Cookies() {
				cookies[ck.Name] = ck.Value
			}
			Expect(cookies).To(HaveKeyWithValue(accessTokenCookie, "access-1"))
			Expect(cookies).To(HaveKeyWithValue(refreshTokenCookie, "refresh-1"))
		})

		It("sends the user back to login when the exchange fails", func() {
			oauth.exchangeErr = auth.ErrUnauthorized
			req := httptest.NewRequest("GET", "/auth/callback?code=abc", nil)
			req.AddCookie(&http.Cookie{Name: verifierCookie, Value: "verifier-1"})
			resp, err := server.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get("Location")).To(HavePrefix("/login"))
		})

		It("signs out even when the remote logout fails", func() {
			req := httptest.NewRequest("POST", "/auth/signout", nil)
			req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "alice-token"})
			resp, err := server.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.StatusCode).To(Equal(http.StatusFound))
			Expect(resp.Header.Get("Location")).To(Equal("/login"))
			Expect(oauth.signedOut).To(Equal("alice-token"))

			for _, ck := range resp.Cookies() {
				if ck.Name == accessTokenCookie || ck.Name == refreshTokenCookie {
					Expect(ck.Value).To(BeEmpty())
				}
			}
		})
	})
})
