package e2e

import (
	"github.com/cucumber/godog"

	"attesto/e2e/steps/common"
	"attesto/e2e/steps/presentation"
	"attesto/e2e/steps/proof"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Proof generation and verification steps
	proof.RegisterSteps(ctx, tc)

	// Presentation exchange steps
	presentation.RegisterSteps(ctx, tc)
}
