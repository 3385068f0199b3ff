package auth_test

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentbase/pkg/auth"
)

func signToken(secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	Expect(err).NotTo(HaveOccurred())
	return token
}

var _ = Describe("JWTVerifier", func() {
	const secret = "super-secret-jwt-token-with-at-least-32-characters"

	var (
		verifier *auth.JWTVerifier
		ctx      context.Context
		claims   jwt.MapClaims
	)

	BeforeEach(func() {
		ctx = context.Background()
		verifier = auth.NewJWTVerifier(secret)
		claims = jwt.MapClaims{
			"sub":   "user-123",
			"email": "ada@example.com",
			"aud":   "authenticated",
			"exp":   time.Now().Add(time.Hour).Unix(),
		}
	})

	It("accepts a valid token", func() {
		user, err := verifier.Verify(ctx, signToken(secret, jwt.SigningMethodHS256, claims))
		Expect(err).NotTo(HaveOccurred())
		Expect(user.ID).To(Equal("user-123"))
		Expect(user.Email).To(Equal("ada@example.com"))
	})

	It("rejects a token signed with another secret", func() {
		_, err := verifier.Verify(ctx, signToken("another-secret", jwt.SigningMethodHS256, claims))
		Expect(err).To(MatchError(auth.ErrUnauthorized))
	})

	It("rejects an expired token", func() {
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := verifier.Verify(ctx, signToken(secret, jwt.SigningMethodHS256, claims))
		Expect(err).To(MatchError(auth.ErrUnauthorized))
	})

	It("rejects a token without expiry", func() {
		delete(claims, "exp")
		_, err := verifier.Verify(ctx, signToken(secret, jwt.SigningMethodHS256, claims))
		Expect(err).To(MatchError(auth.ErrUnauthorized))
	})

	It("rejects the wrong audience", func() {
		claims["aud"] = "anon"
		_, err := verifier.Verify(ctx, signToken(secret, jwt.SigningMethodHS256, claims))
		Expect(err).To(MatchError(auth.ErrUnauthorized))
	})

	It("rejects other signing methods", func() {
		_, err := verifier.Verify(ctx, signToken(secret, jwt.SigningMethodHS512, claims))
		Expect(err).To(MatchError(auth.ErrUnauthorized))
	})

	It("rejects a token without a subject", func() {
		delete(claims, "sub")
		_, err := verifier.Verify(ctx, signToken(secret, jwt.SigningMethodHS256, claims))
		Expect(err).To(MatchError(auth.ErrUnauthorized))
	})

	It("rejects garbage", func() {
		_, err := verifier.Verify(ctx, "not-a-jwt")
		Expect(err).To(MatchError(auth.ErrUnauthorized))
	})
})
