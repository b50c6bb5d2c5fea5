package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgsync/internal/cfgerr"
	"github.com/roach88/cfgsync/internal/testutil"
)

func tree(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for p, content := range files {
		fsys[p] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

// assertGolden compares a rendered document against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/compiler -update
func assertGolden(t *testing.T, name string, doc string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(doc))
}

func TestCompile_GoldenAutoexecVideo(t *testing.T) {
	fsys := tree(map[string]string{
		"autoexec.cfg": `exec "video"`,
		"video.cfg":    "fps_max 0\n",
	})

	resolved, err := Compile(fsys, "autoexec.cfg")
	require.NoError(t, err)
	assert.Equal(t, "fps_max 0", resolved)

	assertGolden(t, "autoexec_video", Render(resolved, testutil.ReferenceTime))
}

func TestCompile_GoldenNestedTree(t *testing.T) {
	fsys := tree(map[string]string{
		"autoexec.cfg":       "// main config\nexec \"video\"\nname \"player\"\nexec \"binds/all\"\nhost_writeconfig\n",
		"video.cfg":          "fps_max 0\nexec \"video/hud\"\nmat_vsync 0\n",
		"video/hud.cfg":      "cl_hud_color 1\n",
		"binds/all.cfg":      "exec \"binds/movement\"\nexec \"binds/weapons\" // weapons\n",
		"binds/movement.cfg": "bind w +forward\nbind s +back\n",
		"binds/weapons.cfg":  "bind 1 slot1\n",
	})

	resolved, err := Compile(fsys, "autoexec.cfg")
	require.NoError(t, err)

	assertGolden(t, "nested_tree", Render(resolved, testutil.ReferenceTime))
}

func TestCompile_NoIncludesIsUnchanged(t *testing.T) {
	contents := []string{
		"fps_max 0\n",
		"fps_max 0",
		"sensitivity 2\r\nvolume 0.4\r\n",
		"\n\nbind w +forward\n\n",
		"",
	}

	for _, content := range contents {
		resolved, err := Compile(tree(map[string]string{"plain.cfg": content}), "plain.cfg")
		require.NoError(t, err)
		assert.Equal(t, content, resolved)

		doc := Render(resolved, testutil.ReferenceTime)
		assert.Equal(t, "// Compiled on 2024-03-09 18:30:00\n\n"+content, doc)
	}
}

func TestCompile_SubstitutesInPlace(t *testing.T) {
	fsys := tree(map[string]string{
		"root.cfg": "before\nexec \"a\"\nmiddle\nexec \"b\"\nafter\n",
		"a.cfg":    "a1\na2\n",
		"b.cfg":    "exec \"c\"\nb1\n",
		"c.cfg":    "c1",
	})

	resolved, err := Compile(fsys, "root.cfg")
	require.NoError(t, err)
	assert.Equal(t, "before\na1\na2\nmiddle\nc1\nb1\nafter\n", resolved)
}

func TestCompile_EmptyChildLeavesBlankLine(t *testing.T) {
	fsys := tree(map[string]string{
		"root.cfg":  "a\nexec \"empty\"\nb",
		"empty.cfg": "",
	})

	resolved, err := Compile(fsys, "root.cfg")
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", resolved)
}

func TestCompile_DiamondIncludedTwice(t *testing.T) {
	fsys := tree(map[string]string{
		"root.cfg":   "exec \"shared\"\nexec \"shared\"",
		"shared.cfg": "volume 0.5\n",
	})

	resolved, err := Compile(fsys, "root.cfg")
	require.NoError(t, err)
	assert.Equal(t, "volume 0.5\nvolume 0.5", resolved)
}

func TestCompile_CycleDetected(t *testing.T) {
	fsys := tree(map[string]string{
		"autoexec.cfg": "exec \"a\"\n",
		"a.cfg":        "exec \"b\"\n",
		"b.cfg":        "exec \"a\"\n",
	})

	_, err := Compile(fsys, "autoexec.cfg")
	require.Error(t, err)
	assert.True(t, cfgerr.IsCyclicInclude(err))

	var cerr *cfgerr.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{"autoexec.cfg", "a.cfg", "b.cfg", "a.cfg"}, cerr.Chain)
}

func TestCompile_MissingChild(t *testing.T) {
	fsys := tree(map[string]string{"autoexec.cfg": "exec \"video\"\n"})

	resolved, err := Compile(fsys, "autoexec.cfg")
	require.Error(t, err)
	assert.Empty(t, resolved)
	assert.True(t, cfgerr.IsFileNotFound(err))
}

func TestCompile_Deterministic(t *testing.T) {
	fsys := tree(map[string]string{
		"autoexec.cfg": "exec \"video\"\nexec \"video\"\n",
		"video.cfg":    "fps_max 0\n",
	})

	first, err := Compile(fsys, "autoexec.cfg")
	require.NoError(t, err)
	second, err := Compile(fsys, "autoexec.cfg")
	require.NoError(t, err)
	assert.Equal(t, Render(first, testutil.ReferenceTime), Render(second, testutil.ReferenceTime))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "compiled.cfg", OutputPath("autoexec.cfg"))
	assert.Equal(t, "cs2/compiled.cfg", OutputPath("cs2/autoexec.cfg"))
	assert.Equal(t, "compiled.cfg", OutputPath("./autoexec.cfg"))
}

func TestRun_WritesCompiledSibling(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"game/autoexec.cfg": "exec \"video\"",
		"video.cfg":         "fps_max 0\n",
	})
	clock := testutil.NewFixedClock(testutil.ReferenceTime)

	result, err := Run(context.Background(), Options{Dir: dir, Root: "game/autoexec.cfg", Now: clock.Now})
	require.NoError(t, err)

	want := "// Compiled on 2024-03-09 18:30:00\n\nfps_max 0"
	assert.Equal(t, filepath.Join(dir, "game", "compiled.cfg"), result.OutputPath)
	assert.Equal(t, len(want), result.Bytes)
	assert.False(t, result.DryRun)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"autoexec.cfg": "exec \"video\"",
		"video.cfg":    "fps_max 0\n",
	})
	before := testutil.ModTimes(t, dir)

	result, err := Run(context.Background(), Options{Dir: dir, Root: "autoexec.cfg", DryRun: true, Now: testutil.NewFixedClock(testutil.ReferenceTime).Now})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, len("// Compiled on 2024-03-09 18:30:00\n\nfps_max 0"), result.Bytes)
	assert.Equal(t, before, testutil.ModTimes(t, dir))
	assert.NoFileExists(t, filepath.Join(dir, "compiled.cfg"))
}

func TestRun_FailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"autoexec.cfg": "exec \"autoexec\"\n"})

	_, err := Run(context.Background(), Options{Dir: dir, Root: "autoexec.cfg"})
	require.Error(t, err)
	assert.True(t, cfgerr.IsCyclicInclude(err))
	assert.NoFileExists(t, filepath.Join(dir, "compiled.cfg"))
}

func TestRun_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"autoexec.cfg": "fps_max 0\n"})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "compiled.cfg"), 0o755))

	_, err := Run(context.Background(), Options{Dir: dir, Root: "autoexec.cfg"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfgerr.ErrWriteFailure))
}
