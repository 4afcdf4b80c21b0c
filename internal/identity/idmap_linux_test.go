package identity

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDMap(t *testing.T) {
	content := "0 100000 65536\n65536 200000 65536\n"

	ranges, err := parseIDMap(content)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, idRange{nsID: 0, hostID: 100000, maprange: 65536}, ranges[0])
	assert.Equal(t, idRange{nsID: 65536, hostID: 200000, maprange: 65536}, ranges[1])
}

func TestParseIDMapSkipsBlankLines(t *testing.T) {
	ranges, err := parseIDMap("\n0 0 4294967295\n\n")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
}

func TestParseIDMapRejectsMalformed(t *testing.T) {
	_, err := parseIDMap("0 100000\n")
	assert.Error(t, err)

	_, err = parseIDMap("not a number at all here\n")
	assert.Error(t, err)
}

func TestIDRangeHostToNS(t *testing.T) {
	r := idRange{nsID: 0, hostID: 100000, maprange: 65536}

	ns, ok := r.hostToNS(100000)
	assert.True(t, ok)
	assert.Equal(t, uint32(0), ns)

	ns, ok = r.hostToNS(100000 + 65535)
	assert.True(t, ok)
	assert.Equal(t, uint32(65535), ns)

	_, ok = r.hostToNS(99999)
	assert.False(t, ok)

	_, ok = r.hostToNS(100000 + 65536)
	assert.False(t, ok)
}

func TestHostUIDToNSUsesOwnProcess(t *testing.T) {
	pid := int32(os.Getpid())

	// The test process's own /proc/<pid>/uid_map identity-maps every uid
	// it currently holds back to itself when run outside a user namespace.
	ns, ok := HostUIDToNS(uint32(os.Getuid()), pid)
	if !ok {
		t.Skip("uid_map not identity-mapped in this environment")
	}

	assert.Equal(t, uint32(os.Getuid()), ns)
}

func TestHostUIDToNSNoSuchProcess(t *testing.T) {
	_, ok := HostUIDToNS(0, 1<<30)
	assert.False(t, ok)
}

func TestIsRootInOwnUserNS(t *testing.T) {
	pid := int32(os.Getpid())

	if os.Getuid() != 0 {
		assert.False(t, IsRootInOwnUserNS(uint32(os.Getuid()), pid))
		return
	}

	assert.True(t, IsRootInOwnUserNS(0, pid))
}
