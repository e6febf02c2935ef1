package hooks

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareExpandsEnvironmentToken(t *testing.T) {
	require.NoError(t, os.Setenv("BUILD.PATH", "/tmp/build"))
	defer os.Unsetenv("BUILD.PATH")

	r := &Runner{}
	out, warnings := r.Prepare(`echo {build.path}`)
	assert.Empty(t, warnings)
	assert.Equal(t, "echo /tmp/build", out)
}

func TestPrepareWarnsOnUnresolvedToken(t *testing.T) {
	r := &Runner{}
	out, warnings := r.Prepare(`echo {totally.unknown.token}`)
	assert.Contains(t, out, "{totally.unknown.token}")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "totally.unknown.token")
}

func TestPrepareElidesEmptyArguments(t *testing.T) {
	r := &Runner{}
	out, _ := r.Prepare(`gcc "" '' -c main.c`)
	assert.Equal(t, "gcc -c main.c", out)
}

func TestEscapeQuotedDefineDoubleQuoted(t *testing.T) {
	assert.Equal(t, `"-DNAME=\"VALUE\""`, escapeQuotedDefine(`-DNAME="VALUE"`))
}

func TestEscapeQuotedDefineSingleQuoted(t *testing.T) {
	assert.Equal(t, `"-DNAME=\"VALUE\""`, escapeQuotedDefine(`-DNAME='VALUE'`))
}

func TestEscapeQuotedDefineWrapsMetacharacterValue(t *testing.T) {
	got := escapeQuotedDefine(`-DFLAGS=a&&b`)
	assert.Equal(t, `"-DFLAGS=a&&b"`, got)
}

func TestEscapeQuotedDefineLeavesPlainValueAlone(t *testing.T) {
	assert.Equal(t, "-DNAME=1", escapeQuotedDefine("-DNAME=1"))
}

func TestIsSuppressedSelfCopyDetectsIdenticalPaths(t *testing.T) {
	assert.True(t, isSuppressedSelfCopy(`COPY /y "C:\build\partitions.csv" "C:\build\partitions.csv"`))
	assert.False(t, isSuppressedSelfCopy(`COPY /y "C:\a.csv" "C:\b.csv"`))
}

func TestRunCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell command")
	}
	r := &Runner{}
	out, _, err := r.Run(`echo hello`, t.TempDir(), Capture, Ignore)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestRunIgnoresNonFatalPartitionsCsvFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell command")
	}
	r := &Runner{}
	_, _, err := r.Run(`false -- partitions.csv`, t.TempDir(), Ignore, Ignore)
	assert.NoError(t, err)
}

func TestRunPropagatesOtherFailures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell command")
	}
	r := &Runner{}
	_, _, err := r.Run(`false`, t.TempDir(), Ignore, Ignore)
	assert.Error(t, err)
}
