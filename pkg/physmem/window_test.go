package physmem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

// testDevice creates a two-page file standing in for the memory device.
func testDevice(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mem")
	err := os.WriteFile(path, make([]byte, 2*PageSize), 0o600)
	assert.NoError(t, err)
	return path
}

func TestReadWriteWidths(t *testing.T) {
	w, err := Open(testDevice(t))
	assert.NoError(t, err)
	defer w.Close()

	assert.NoError(t, w.Write(0x10, 4, 0xCAFEBABE))
	v, err := w.Read(0x10, 4)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v)

	assert.NoError(t, w.Write(0x20, 2, 0xBEEF))
	v, err = w.Read(0x20, 2)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xBEEF), v)

	assert.NoError(t, w.Write(0x30, 1, 0xA5))
	v, err = w.Read(0x30, 1)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xA5), v)
}

func TestPageRemap(t *testing.T) {
	w, err := Open(testDevice(t))
	assert.NoError(t, err)
	defer w.Close()

	// Writes on two different pages, then read back both: the second access
	// must remap and the first mapping's data must persist in the backing
	// device.
	assert.NoError(t, w.Write(0x100, 4, 0x11111111))
	assert.NoError(t, w.Write(PageSize+0x100, 4, 0x22222222))

	v, err := w.Read(0x100, 4)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x11111111), v)

	v, err = w.Read(PageSize+0x100, 4)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x22222222), v)
}

func TestUnsupportedWidth(t *testing.T) {
	w, err := Open(testDevice(t))
	assert.NoError(t, err)
	defer w.Close()

	_, err = w.Read(0, 3)
	assert.Error(t, err)
	err = w.Write(0, 8, 1)
	assert.Error(t, err)
}

func TestUnalignedAccess(t *testing.T) {
	w, err := Open(testDevice(t))
	assert.NoError(t, err)
	defer w.Close()

	_, err = w.Read(0x11, 4)
	assert.Error(t, err)
	_, err = w.Read(0x11, 2)
	assert.Error(t, err)

	// Byte access has no alignment requirement.
	_, err = w.Read(0x11, 1)
	assert.NoError(t, err)
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
