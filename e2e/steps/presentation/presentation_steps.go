package presentation

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"
)

// hs256Key signs throwaway holder tokens. The engine never validates the
// signature (that is the signature layer's job); it only reads the nonce.
var hs256Key = []byte("e2e-holder-key")

// TestContext interface defines the methods needed from the main test context.
type TestContext interface {
	POST(path string, body interface{}) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (interface{}, error)
	RememberPresentationRequest() error
}

// RegisterSteps registers presentation exchange step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &presentationSteps{tc: tc}

	ctx.Step(`^I mint a presentation request with purpose "([^"]*)"$`, steps.mintRequest)
	ctx.Step(`^I submit a vp_token carrying the issued nonce$`, steps.submitWithIssuedNonce)
	ctx.Step(`^I submit a vp_token carrying nonce "([^"]*)"$`, steps.submitWithNonce)
	ctx.Step(`^I submit a response for request "([^"]*)"$`, steps.submitForRequest)
}

type presentationSteps struct {
	tc        TestContext
	requestID string
	nonce     string
}

func (s *presentationSteps) mintRequest(ctx context.Context, purpose string) error {
	if err := s.tc.POST("/presentations/requests", map[string]string{"purpose": purpose}); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		// Leave the response for assertion steps.
		return nil
	}

	if err := s.tc.RememberPresentationRequest(); err != nil {
		return err
	}
	requestID, err := s.tc.GetResponseField("request_id")
	if err != nil {
		return err
	}
	nonce, err := s.tc.GetResponseField("nonce")
	if err != nil {
		return err
	}
	s.requestID, _ = requestID.(string)
	s.nonce, _ = nonce.(string)
	return nil
}

func (s *presentationSteps) submitWithIssuedNonce(ctx context.Context) error {
	return s.submit(s.requestID, s.nonce)
}

func (s *presentationSteps) submitWithNonce(ctx context.Context, nonce string) error {
	return s.submit(s.requestID, nonce)
}

func (s *presentationSteps) submitForRequest(ctx context.Context, requestID string) error {
	return s.submit(requestID, "some-nonce")
}

func (s *presentationSteps) submit(requestID, nonce string) error {
	token, err := signToken(nonce)
	if err != nil {
		return err
	}
	return s.tc.POST("/presentations/responses", map[string]string{
		"request_id": requestID,
		"vp_token":   token,
	})
}

func signToken(nonce string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"nonce": nonce})
	signed, err := token.SignedString(hs256Key)
	if err != nil {
		return "", fmt.Errorf("sign vp_token: %w", err)
	}
	return signed, nil
}
