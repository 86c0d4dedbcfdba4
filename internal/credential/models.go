// Package credential holds the issuer-side credential records the proof
// envelope builder reads from. Records are immutable once saved; revocation
// supersedes them, nothing mutates them in place.
package credential

import (
	"encoding/json"
	"time"
)

// Record is an issued credential: claim payload plus issuance metadata.
// Claims keeps the original JSON bytes so legacy-rule hashing can reproduce
// the nested key order exactly as presented at issuance.
type Record struct {
	ID             string
	Issuer         string
	Subject        string
	IssuanceDate   time.Time
	ExpirationDate *time.Time
	Claims         json.RawMessage
}
