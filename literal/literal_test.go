package literal

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guda "github.com/LynnColeArt/gudascan"
)

func TestRead(t *testing.T) {
	tests := []struct {
		input string
		want  []int32
	}{
		{"[1i32, 2i32, 3i32, 4i32]", []int32{1, 2, 3, 4}},
		{"[1, 2, 3, 4]", []int32{1, 2, 3, 4}},
		{"[]", []int32{}},
		{"[ ]", []int32{}},
		{"empty(i32)", []int32{}},
		{"  empty ( i32 )\n", []int32{}},
		{"[-5i32]", []int32{-5}},
		{"[+7]", []int32{7}},
		{"[0x1F, -0x10, 010, 0]", []int32{31, -16, 8, 0}},
		{"[2147483647i32, -2147483648i32]", []int32{2147483647, -2147483648}},
		{"  [\n\t1 ,\n 2\n]  ", []int32{1, 2}},
		{"-- leading comment\n[1, -- inline\n 2] trailing input is ignored", []int32{1, 2}},
		{"[1i32,2i32]", []int32{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"1, 2",
		"[[1, 2]]",
		"[1, [2]]",
		"[1, 2",
		"[1 2]",
		"[, 1]",
		"[1,]",
		"[1i64]",
		"[1x]",
		"[08]",
		"[0x]",
		"[2147483648]",
		"[-2147483649i32]",
		"[abc]",
		"empty(i64)",
		"empty i32",
		"empty(i32",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Read(strings.NewReader(input))
			require.Error(t, err)
			assert.True(t, guda.IsConfigError(err), "got %v", err)
			assert.Contains(t, err.Error(), "syntax error at offset")
		})
	}
}

func TestReadStopsAfterLiteral(t *testing.T) {
	r := strings.NewReader("[1, 2]")
	got, err := Read(io.MultiReader(r, strings.NewReader(" [3]")))
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, got)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "empty(i32)", Format(nil))
	assert.Equal(t, "empty(i32)", Format([]int32{}))
	assert.Equal(t, "[11i32]", Format([]int32{11}))
	assert.Equal(t, "[11i32, 24i32, 39i32, 56i32]", Format([]int32{11, 24, 39, 56}))
	assert.Equal(t, "[-2147483648i32, 0i32]", Format([]int32{-2147483648, 0}))
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, xs := range [][]int32{
		{},
		{0},
		{1, -1, 2147483647, -2147483648, 42},
	} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, xs))
		assert.True(t, strings.HasSuffix(buf.String(), "\n"))
		got, err := Read(&buf)
		require.NoError(t, err)
		assert.Equal(t, xs, got)
	}
}
