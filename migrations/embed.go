// Package migrations embeds the SQL schema for the credential and anchor
// batch stores. The integration test fixtures apply it; deployments run the
// same files through their migration tooling.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
