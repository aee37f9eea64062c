package urlindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReverseHost(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"http://www.example.com/foo", "com.example.www/foo:http"},
		{"https://example.com/", "com.example/:https"},
		{"http://example.com:8080/path?x=1", "com.example/path?x=1:8080:http"},
	}
	for _, c := range cases {
		got, err := ReverseHost(c.url)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestReverseHostRejectsUnparsable(t *testing.T) {
	_, err := ReverseHost("://bad")
	require.Error(t, err)
}
