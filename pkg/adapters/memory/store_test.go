package memory_test

import (
	"testing"

	"github.com/aretw0/graphlab/pkg/adapters/memory"
	"github.com/aretw0/graphlab/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	tests.RunSessionStoreContract(t, store)
}
