package memory_test

import (
	"testing"

	"github.com/IsaiahDupree/BlankLogo-sub004/store"
	"github.com/IsaiahDupree/BlankLogo-sub004/store/memory"
	"github.com/IsaiahDupree/BlankLogo-sub004/store/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(_ *testing.T) store.Store {
		return memory.New()
	})
}
