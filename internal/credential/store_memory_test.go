package credential

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attesto/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newRecord(id string) Record {
	return Record{
		ID:           id,
		Issuer:       "did:web:issuer.example",
		Subject:      "did:key:z6MkSubject",
		IssuanceDate: time.Now().UTC(),
		Claims:       json.RawMessage(`{"degree":"BSc","score":42}`),
	}
}

func (s *MemoryStoreSuite) TestSaveAndFind() {
	s.Run("saves and finds by ID", func() {
		rec := s.newRecord("cred-1")
		s.Require().NoError(s.store.Save(s.ctx, rec))

		found, err := s.store.FindByID(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(rec.Issuer, found.Issuer)
		s.JSONEq(string(rec.Claims), string(found.Claims))
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestImmutability() {
	rec := s.newRecord("cred-2")
	s.Require().NoError(s.store.Save(s.ctx, rec))

	rec.Issuer = "did:web:attacker.example"
	err := s.store.Save(s.ctx, rec)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	found, err := s.store.FindByID(s.ctx, "cred-2")
	s.Require().NoError(err)
	s.Equal("did:web:issuer.example", found.Issuer)
}
