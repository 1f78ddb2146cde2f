package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otpvault/otp"
)

func writeImportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImportFromFile_Records(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))

	path := writeImportFile(t, `[
		{"issuer": "GitHub", "name": "alice", "secret": "JBSWY3DPEHPK3PXP"},
		{"issuer": "AWS", "name": "bob", "secret": "MFRGG", "algorithm": "SHA256", "digits": 8, "period": 60},
		{"issuer": "Broken", "name": "carol", "secret": "not-base32!"},
		{"issuer": "NoSecret", "name": "dave"}
	]`)

	count, err := m.ImportFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Equal(t, 2, m.Len())

	first, _ := m.At(0)
	assert.Equal(t, "GitHub", first.Issuer)
	assert.Equal(t, otp.SHA1, first.Algorithm)
	assert.Equal(t, 6, first.Digits)
	assert.Equal(t, 30, first.Period)

	second, _ := m.At(1)
	assert.Equal(t, "AWS", second.Issuer)
	assert.Equal(t, otp.SHA256, second.Algorithm)
	assert.Equal(t, 8, second.Digits)
	assert.Equal(t, 60, second.Period)
}

func TestImportFromFile_NestedURIs(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))

	// Exports from other apps bury provisioning URIs in arbitrary
	// structure; anything that parses is picked up, the rest is skipped.
	path := writeImportFile(t, `{
		"backup": {
			"items": [
				"otpauth://totp/Example:alice?secret=JBSWY3DPEHPK3PXP&issuer=Example",
				"otpauth://totp/bad?secret=!!!",
				"https://not-an-otp-uri.example.com"
			]
		}
	}`)

	count, err := m.ImportFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	c, ok := m.At(0)
	require.True(t, ok)
	assert.Equal(t, "Example", c.Issuer)
	assert.Equal(t, "alice", c.Name)
	assert.Equal(t, []byte("Hello!\xde\xad\xbe\xef"), c.Secret)
}

func TestImportFromFile_AppendsAfterExisting(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))
	m.Add("Existing", "x", "MFRGG")

	path := writeImportFile(t, `[{"issuer": "New", "name": "y", "secret": "MFRGG"}]`)
	count, err := m.ImportFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "Existing", issuerAt(t, m, 0))
	assert.Equal(t, "New", issuerAt(t, m, 1))
}

func TestImportFromFile_PersistsOnce(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "vault.dat")
	m := newTestModel(t, vaultPath)
	require.NoError(t, unlockWait(t, m, "pw"))

	path := writeImportFile(t, `[
		{"issuer": "A", "name": "a", "secret": "MFRGG"},
		{"issuer": "B", "name": "b", "secret": "MFRGG"}
	]`)
	_, err := m.ImportFromFile(path)
	require.NoError(t, err)
	require.NoError(t, m.Flush())
	m.Close()

	m2 := newTestModel(t, vaultPath)
	require.NoError(t, unlockWait(t, m2, "pw"))
	assert.Equal(t, 2, m2.Len())
}

func TestImportFromFile_Failures(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))

	t.Run("missing file", func(t *testing.T) {
		_, err := m.ImportFromFile(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		path := writeImportFile(t, "issuer,name,secret\nA,a,MFRGG")
		_, err := m.ImportFromFile(path)
		assert.Error(t, err)
	})

	t.Run("nothing importable", func(t *testing.T) {
		path := writeImportFile(t, `{"settings": {"theme": "dark"}}`)
		count, err := m.ImportFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	assert.Equal(t, 0, m.Len())
}

func TestImportFromFile_RequiresUnlocked(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	path := writeImportFile(t, `[{"issuer": "A", "name": "a", "secret": "MFRGG"}]`)
	_, err := m.ImportFromFile(path)
	assert.Error(t, err)
}

func TestImportFromFile_BadOverridesSkipRecord(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))

	path := writeImportFile(t, `[
		{"issuer": "A", "name": "a", "secret": "MFRGG", "digits": 7},
		{"issuer": "B", "name": "b", "secret": "MFRGG", "algorithm": "MD5"},
		{"issuer": "C", "name": "c", "secret": "MFRGG", "period": -5},
		{"issuer": "D", "name": "d", "secret": "MFRGG"}
	]`)
	count, err := m.ImportFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "D", issuerAt(t, m, 0))
}
