package canonical

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CanonicalSuite struct {
	suite.Suite
}

func TestCanonicalSuite(t *testing.T) {
	suite.Run(t, new(CanonicalSuite))
}

func (s *CanonicalSuite) TestStrictKeyOrderInvariance() {
	s.Run("top-level key order does not matter", func() {
		a, err := Canonicalize(json.RawMessage(`{"a":1,"b":2}`), RuleSetStrict)
		s.Require().NoError(err)
		b, err := Canonicalize(json.RawMessage(`{"b":2,"a":1}`), RuleSetStrict)
		s.Require().NoError(err)
		s.Equal(a, b)
	})

	s.Run("nested key order does not matter at any depth", func() {
		a, err := Canonicalize(json.RawMessage(`{"a":1,"b":{"x":1,"y":{"p":true,"q":null}}}`), RuleSetStrict)
		s.Require().NoError(err)
		b, err := Canonicalize(json.RawMessage(`{"b":{"y":{"q":null,"p":true},"x":1},"a":1}`), RuleSetStrict)
		s.Require().NoError(err)
		s.Equal(a, b)
	})

	s.Run("decoded maps and raw bytes agree", func() {
		fromMap, err := Canonicalize(map[string]any{"name": "X", "score": 42}, RuleSetStrict)
		s.Require().NoError(err)
		fromRaw, err := Canonicalize(json.RawMessage(`{"score":42,"name":"X"}`), RuleSetStrict)
		s.Require().NoError(err)
		s.Equal(fromMap, fromRaw)
	})
}

func (s *CanonicalSuite) TestStrictArrayOrderIsSignificant() {
	a, err := Canonicalize(json.RawMessage(`{"tags":["a","b"]}`), RuleSetStrict)
	s.Require().NoError(err)
	b, err := Canonicalize(json.RawMessage(`{"tags":["b","a"]}`), RuleSetStrict)
	s.Require().NoError(err)
	s.NotEqual(a, b)
}

func (s *CanonicalSuite) TestStrictRejectsLossyValues() {
	s.Run("NaN", func() {
		_, err := Canonicalize(map[string]any{"score": math.NaN()}, RuleSetStrict)
		var cErr *CanonicalizationError
		s.Require().ErrorAs(err, &cErr)
		s.Contains(cErr.Reason, "non-finite")
	})

	s.Run("infinity", func() {
		_, err := Canonicalize(map[string]any{"score": math.Inf(1)}, RuleSetStrict)
		var cErr *CanonicalizationError
		s.Require().ErrorAs(err, &cErr)
	})

	s.Run("native time value", func() {
		_, err := Canonicalize(map[string]any{"issued": time.Now()}, RuleSetStrict)
		var cErr *CanonicalizationError
		s.Require().ErrorAs(err, &cErr)
		s.Contains(cErr.Path, "issued")
	})
}

func (s *CanonicalSuite) TestStrictOutputForm() {
	s.Run("fixed scalar forms", func() {
		got, err := Canonicalize(json.RawMessage(`{"b":true,"n":null,"num":1.5,"s":"hi"}`), RuleSetStrict)
		s.Require().NoError(err)
		s.Equal(`{"b":true,"n":null,"num":1.5,"s":"hi"}`, got)
	})

	s.Run("number literals survive raw input", func() {
		got, err := Canonicalize(json.RawMessage(`{"big":12345678901234567890}`), RuleSetStrict)
		s.Require().NoError(err)
		s.Equal(`{"big":12345678901234567890}`, got)
	})
}

func (s *CanonicalSuite) TestLegacyTopLevelSort() {
	s.Run("sorts top-level keys only", func() {
		got, err := Canonicalize(json.RawMessage(`{"b":{"y":2,"x":1},"a":1}`), RuleSetLegacyTopLevel)
		s.Require().NoError(err)
		// Nested {"y":2,"x":1} keeps its presented order.
		s.Equal(`{"a":1,"b":{"y":2,"x":1}}`, got)
	})

	s.Run("differs from strict when nested order differs from sorted", func() {
		raw := json.RawMessage(`{"a":1,"b":{"y":2,"x":1}}`)
		strict, err := Canonicalize(raw, RuleSetStrict)
		s.Require().NoError(err)
		legacy, err := Canonicalize(raw, RuleSetLegacyTopLevel)
		s.Require().NoError(err)
		s.NotEqual(strict, legacy)
	})

	s.Run("matches strict for flat objects", func() {
		raw := json.RawMessage(`{"score":42,"name":"X"}`)
		strict, err := Canonicalize(raw, RuleSetStrict)
		s.Require().NoError(err)
		legacy, err := Canonicalize(raw, RuleSetLegacyTopLevel)
		s.Require().NoError(err)
		s.Equal(strict, legacy)
	})

	s.Run("accepts values strict rejects", func() {
		// time.Time has a JSON form, so legacy tolerates it.
		_, err := Canonicalize(map[string]any{"issued": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, RuleSetLegacyTopLevel)
		s.NoError(err)
	})

	s.Run("compacts whitespace deterministically", func() {
		a, err := Canonicalize(json.RawMessage("{ \"a\" : 1 ,\n\"b\": {\"y\":2} }"), RuleSetLegacyTopLevel)
		s.Require().NoError(err)
		b, err := Canonicalize(json.RawMessage(`{"a":1,"b":{"y":2}}`), RuleSetLegacyTopLevel)
		s.Require().NoError(err)
		s.Equal(a, b)
	})
}

func (s *CanonicalSuite) TestParseRuleSet() {
	s.Run("empty defaults to strict", func() {
		rs, err := ParseRuleSet("")
		s.Require().NoError(err)
		s.Equal(RuleSetStrict, rs)
	})

	s.Run("known tags", func() {
		rs, err := ParseRuleSet("LEGACY_TOP_LEVEL")
		s.Require().NoError(err)
		s.Equal(RuleSetLegacyTopLevel, rs)
	})

	s.Run("unknown tag rejected", func() {
		_, err := ParseRuleSet("JCS")
		s.Error(err)
	})
}
