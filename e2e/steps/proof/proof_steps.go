package proof

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context.
type TestContext interface {
	POST(path string, body interface{}) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers proof generation and verification step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &proofSteps{tc: tc}

	ctx.Step(`^a credential payload:$`, steps.credentialPayload)
	ctx.Step(`^I verify the credential with its computed digest$`, steps.verifyWithComputedDigest)
	ctx.Step(`^I verify the credential with digest "([^"]*)"$`, steps.verifyWithDigest)
	ctx.Step(`^I verify the credential bound to challenge "([^"]*)" and domain "([^"]*)"$`, steps.verifyBound)
	ctx.Step(`^I request a proof for credential "([^"]*)"$`, steps.requestProof)
}

type proofSteps struct {
	tc         TestContext
	credential json.RawMessage
	digest     string
}

// credentialPayload stores the docstring credential and precomputes its
// strict digest: compact JSON with object keys sorted at every level.
func (s *proofSteps) credentialPayload(ctx context.Context, doc *godog.DocString) error {
	raw := json.RawMessage(doc.Content)

	digest, err := strictDigest(raw)
	if err != nil {
		return err
	}

	s.credential = raw
	s.digest = digest
	return nil
}

func (s *proofSteps) verifyWithComputedDigest(ctx context.Context) error {
	return s.verify(s.digest, "", "")
}

func (s *proofSteps) verifyWithDigest(ctx context.Context, digest string) error {
	return s.verify(digest, "", "")
}

func (s *proofSteps) verifyBound(ctx context.Context, challenge, domain string) error {
	return s.verify(s.digest, challenge, domain)
}

func (s *proofSteps) verify(digest, challenge, domain string) error {
	if s.credential == nil {
		return fmt.Errorf("no credential payload set; use the credential payload step first")
	}

	body := map[string]interface{}{
		"credential": s.credential,
		"proof": map[string]string{
			"algorithm": "sha256",
			"hash":      digest,
		},
	}
	if challenge != "" {
		body["challenge"] = challenge
	}
	if domain != "" {
		body["domain"] = domain
	}
	return s.tc.POST("/proofs/verify", body)
}

func (s *proofSteps) requestProof(ctx context.Context, credentialID string) error {
	return s.tc.POST("/credentials/"+credentialID+"/proof", nil)
}

// strictDigest reproduces the engine's strict canonical form for plain JSON
// documents: encoding/json sorts map keys at every level and json.Number
// preserves numeric literals.
func strictDigest(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return "", fmt.Errorf("invalid credential JSON: %w", err)
	}

	canonical, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("canonicalize credential: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
