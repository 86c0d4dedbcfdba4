package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type HashSuite struct {
	suite.Suite
}

func TestHashSuite(t *testing.T) {
	suite.Run(t, new(HashSuite))
}

func (s *HashSuite) TestHashIsDigestOfCanonicalForm() {
	payload := json.RawMessage(`{"score":42,"name":"X"}`)

	canon, err := Canonicalize(payload, RuleSetStrict)
	s.Require().NoError(err)
	want := sha256.Sum256([]byte(canon))

	got, err := HashStrict(payload)
	s.Require().NoError(err)
	s.Equal(hex.EncodeToString(want[:]), got)
	s.Len(got, HexDigestLen)
}

func (s *HashSuite) TestHashKeyOrderInvariance() {
	a, err := HashStrict(json.RawMessage(`{"a":1,"b":{"x":1,"y":2}}`))
	s.Require().NoError(err)
	b, err := HashStrict(json.RawMessage(`{"b":{"y":2,"x":1},"a":1}`))
	s.Require().NoError(err)
	s.Equal(a, b)
}

func (s *HashSuite) TestHashDifferential() {
	// Nested key order differs from sorted, so the two rule-sets diverge.
	raw := json.RawMessage(`{"a":1,"b":{"y":2,"x":1}}`)

	strict, err := Hash(raw, RuleSetStrict)
	s.Require().NoError(err)
	legacy, err := HashLegacyTopLevel(raw)
	s.Require().NoError(err)
	s.NotEqual(strict, legacy)
}

func (s *HashSuite) TestHashPropagatesCanonicalizationError() {
	_, err := HashStrict(map[string]any{"bad": make(chan int)})
	var cErr *CanonicalizationError
	s.ErrorAs(err, &cErr)
}

func (s *HashSuite) TestIsHexDigest() {
	digest, err := HashStrict(json.RawMessage(`{"name":"X"}`))
	s.Require().NoError(err)
	s.True(IsHexDigest(digest))

	s.False(IsHexDigest("deadbeef"))      // too short
	s.False(IsHexDigest(digest[:63]+"G")) // bad char
	s.False(IsHexDigest(digest[:63]+"A")) // uppercase rejected
	s.False(IsHexDigest(""))
	s.True(IsHexDigest("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"))
}
