package ports_test

import (
	"testing"

	"github.com/civicdesk/civicdesk/internal/mocks"
	authmocks "github.com/civicdesk/civicdesk/internal/mocks/auth"
	"github.com/civicdesk/civicdesk/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.IdentityProvider = (*authmocks.MockIdentityProvider)(nil)
	var _ ports.SessionStore = (*authmocks.MemorySessionStore)(nil)
	var _ ports.ProfileDirectory = (*authmocks.MemoryProfileStore)(nil)
	var _ ports.ProfileStore = (*mocks.MockProfileStore)(nil)
	var _ ports.SessionStore = (*mocks.MockSessionStore)(nil)
}
