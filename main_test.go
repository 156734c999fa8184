package match

import (
	"os"
	"testing"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	SetLogger(zap.NewNop())
	os.Exit(m.Run())
}
