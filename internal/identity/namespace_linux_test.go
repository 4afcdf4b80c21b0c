package identity

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadNamespaceIDsMatchesOwnProcess(t *testing.T) {
	ids := LoadNamespaceIDs()

	assert.True(t, ids.SamePidNS(int32(os.Getpid())))
	assert.True(t, ids.SameUserNS(int32(os.Getpid())))
}

func TestSamePidNSZeroValueAlwaysTrue(t *testing.T) {
	var ids NamespaceIDs

	assert.True(t, ids.SamePidNS(int32(os.Getpid())))
	assert.True(t, ids.SameUserNS(int32(os.Getpid())))
}

func TestSamePidNSRejectsMismatch(t *testing.T) {
	ids := NamespaceIDs{PidNS: "pid:[nonexistent]"}

	assert.False(t, ids.SamePidNS(int32(os.Getpid())))
}

func TestSameUserNSRejectsMismatch(t *testing.T) {
	ids := NamespaceIDs{UserNS: "user:[nonexistent]"}

	assert.False(t, ids.SameUserNS(int32(os.Getpid())))
}

func TestSamePidNSNoSuchProcess(t *testing.T) {
	ids := LoadNamespaceIDs()

	assert.False(t, ids.SamePidNS(1<<30))
}
