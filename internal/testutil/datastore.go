package testutil

import (
	"fmt"

	"github.com/google/uuid"
)

// NewTestDSN generates a DSN for an in-memory SQLite database for testing purposes.
func NewTestDSN(testName string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", testName)
}

// NewUniqueTestDSN generates a DSN for an in-memory SQLite database that no
// other caller shares, for tests that open many databases.
func NewUniqueTestDSN(prefix string) string {
	return NewTestDSN(prefix + "_" + uuid.NewString())
}
