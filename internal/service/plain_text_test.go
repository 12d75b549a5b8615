package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainTextKeepsPunctuation(t *testing.T) {
	text := newPlainText()

	cases := map[string]string{
		"O'Brien & Kim":          "O'Brien & Kim",
		"  2024&01 ":             "2024&01",
		`Lee "Jay"`:              `Lee "Jay"`,
		"a < b":                  "a < b",
		"<b>Lee</b>":             "Lee",
		"Tom <script>x</script>": "Tom",
	}
	for in, want := range cases {
		require.Equal(t, want, text.clean(in), in)
	}
}

func TestPlainTextStripsEncodedMarkup(t *testing.T) {
	text := newPlainText()

	require.Equal(t, "Lee", text.clean("&lt;b&gt;Lee&lt;/b&gt;"))
	require.Equal(t, "O'Brien & Kim & co", text.clean("O'Brien & Kim &amp; co"))
}

func TestPlainTextIsStable(t *testing.T) {
	text := newPlainText()

	for _, in := range []string{"O'Brien & Kim", "&lt;i&gt;Kim", "Park &amp;amp; Choi", "a < b"} {
		once := text.clean(in)
		require.Equal(t, once, text.clean(once), in)
	}
}
