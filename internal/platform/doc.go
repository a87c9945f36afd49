// Package platform contains filesystem glue shared by the workers:
// filename sanitization, directory helpers, partial-artifact cleanup,
// and the atomic temp-to-final publish step.
package platform
