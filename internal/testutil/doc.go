// Package testutil holds fixtures shared by package tests: throwaway SQLite
// databases, a silent logger and deterministic key generators.
package testutil
