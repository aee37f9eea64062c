// Package urlindex concretizes the collaborator contracts spec.md §6 leaves
// external: reversing a URL's host for locality-friendly prefix scans, the
// content-type registry that resolves a logical format name to a pbtree
// writer factory, and the scratch state a map-reduce-style partition
// pass carries across blocks.
package urlindex

import (
	"fmt"
	"net/url"
	"strings"
)

// ReverseHost rewrites a URL so its host labels read most-significant
// first, grouping a site's pages under one lexicographic prefix:
// http://www.example.com/foo -> com.example.www/foo:http. Building a
// pbtree keyed by ReverseHost output lets a prefix scan over one host
// retrieve every URL under it in a single Items(prefix) call.
func ReverseHost(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlindex: parse url %q: %w", rawURL, err)
	}

	labels := strings.Split(u.Hostname(), ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}

	var b strings.Builder
	b.WriteString(strings.Join(labels, "."))
	b.WriteString(u.EscapedPath())
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	if port := u.Port(); port != "" {
		b.WriteString(":")
		b.WriteString(port)
	}
	b.WriteString(":")
	b.WriteString(u.Scheme)
	return b.String(), nil
}
