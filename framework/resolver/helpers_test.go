package resolver_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/pibox/framework/catalog"
)

// Shared test types and constructors used across test files.

// mustCatalog calls t.Fatal if the catalog cannot be built.
func mustCatalog(t *testing.T, components ...*catalog.Component) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(components...)
	require.NoError(t, err)
	return cat
}

// mustType returns the single candidate type registered for sample.
func mustType(t *testing.T, cat *catalog.Catalog, sample any) *catalog.Type {
	t.Helper()
	typ, ok := cat.LookupValue(sample)
	require.True(t, ok, "type of %T not in catalog", sample)
	return typ
}

type namer interface{ Name() string }

type testSettings struct{ DSN string }

type testClock struct{}

type testGreeter struct {
	Settings *testSettings
	Clock    *testClock
}

func (g *testGreeter) Name() string { return "greeter" }

type testAuditor struct{ Settings *testSettings }

func (a *testAuditor) Name() string { return "auditor" }

type testNeedsMissing struct{}

func (n *testNeedsMissing) Name() string { return "needs-missing" }

type testMissingDep struct{}

func newTestGreeter(s *testSettings) *testGreeter { return &testGreeter{Settings: s} }

func newTestGreeterWithClock(s *testSettings, c *testClock) *testGreeter {
	return &testGreeter{Settings: s, Clock: c}
}

func newTestAuditor(s *testSettings) *testAuditor { return &testAuditor{Settings: s} }

func newTestNeedsMissing(*testMissingDep) *testNeedsMissing { return &testNeedsMissing{} }

var errBoom = errors.New("boom")

type testFailing struct{}

func newTestFailing() (*testFailing, error) { return nil, errBoom }

// testCountingCloser counts constructions and Close calls.
type testCountingCloser struct {
	closed *int32
	order  *[]string
	name   string
}

func (c *testCountingCloser) Close() error {
	atomic.AddInt32(c.closed, 1)
	if c.order != nil {
		*c.order = append(*c.order, c.name)
	}
	return nil
}

type testOtherCloser struct{ testCountingCloser }

type testFailCloser struct{}

func (*testFailCloser) Close() error { return errors.New("close failed") }

// testError is a concrete error type; constructors may not return it in
// place of error.
type testError struct{}

func (testError) Error() string { return "test error" }
