package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		validateCatalog = nil
		validateFromDB = false
	})
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	options := writeFile(t, dir, "options.txt", "A\nB\n")

	t.Run("valid prints canonical form", func(t *testing.T) {
		conds := writeFile(t, dir, "ok.json",
			`[{"option":"A","requiredfields":["phone"],"hiddenfields":[]},{"option":"B","requiredfields":[],"hiddenfields":["phone"]}]`)
		out, _, err := execute(t, "validate", "--log-format", "text",
			"--field", "contact", "--fields", "phone,nickname", "--options", options, "--conditions", conds)
		require.NoError(t, err)
		assert.Contains(t, out, `"option":"A"`)
		assert.Contains(t, out, `"hiddenclearedfields":[]`)
	})

	t.Run("legacy index keying is rewritten", func(t *testing.T) {
		conds := writeFile(t, dir, "legacy.json",
			`[{"option":0,"requiredfields":["phone"],"hiddenfields":[]},{"option":1,"requiredfields":[],"hiddenfields":["phone"]}]`)
		out, _, err := execute(t, "validate", "--log-format", "text",
			"--field", "contact", "--fields", "phone", "--options", options, "--conditions", conds)
		require.NoError(t, err)
		assert.Contains(t, out, `"option":"B"`)
	})

	t.Run("hidden and required is reported", func(t *testing.T) {
		conds := writeFile(t, dir, "bad.json",
			`[{"option":"A","requiredfields":["phone"],"hiddenfields":["phone"]},{"option":"B","requiredfields":[],"hiddenfields":[]}]`)
		_, errOut, err := execute(t, "validate", "--log-format", "text",
			"--field", "contact", "--fields", "phone", "--options", options, "--conditions", conds)
		require.ErrorIs(t, err, errInvalidDefinition)
		assert.Contains(t, errOut, "required field that you set to be hidden")
	})

	t.Run("missing inputs", func(t *testing.T) {
		_, _, err := execute(t, "validate", "--options", options, "--conditions", "")
		require.Error(t, err)
	})
}

func TestPickSecret(t *testing.T) {
	one := map[string][]byte{"aa": []byte("x")}
	two := map[string][]byte{"aa": []byte("x"), "bb": []byte("y")}

	id, err := pickSecret(one, "")
	require.NoError(t, err)
	assert.Equal(t, "aa", id)

	_, err = pickSecret(two, "")
	assert.Error(t, err)

	id, err = pickSecret(two, "bb")
	require.NoError(t, err)
	assert.Equal(t, "bb", id)

	_, err = pickSecret(two, "cc")
	assert.Error(t, err)

	_, err = pickSecret(nil, "")
	assert.Error(t, err)
}
