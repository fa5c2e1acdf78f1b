// Package main provides the entry point for the reviewaudit CLI.
//
// reviewaudit checks the customer testimonials of a static locksmith site
// for recycled reviewer identities, near-duplicate review texts and reviews
// shown on pages whose service they do not match.
//
// Usage:
//
//	reviewaudit audit <site-dir>
//	reviewaudit audit --corpus reviews.json
//	reviewaudit extract <site-dir> -o reviews.json
//
// See --help for all available options.
package main

// main is the entry point for reviewaudit.
func main() {
	Execute()
}
