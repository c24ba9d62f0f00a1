package mocks

import "github.com/jbweber/homelab/dao"

//go:generate mockgen -package mocks -destination mock_store.go github.com/jbweber/homelab/dao/internal/mocks StringStore

// StringStore is the store contract for string entities. Tests use its mock
// to drive the failure paths that real stores rarely produce.
type StringStore interface {
	dao.Store[string]
}
