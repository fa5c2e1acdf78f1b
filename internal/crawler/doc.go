// Package crawler fetches the pages of a live site for auditing.
//
// The Spider walks a site breadth-first from a start URL, following
// same-host links below the start directory, and keeps the pages a
// site.Layout lists. The kept pages carry their layout path and category
// so the extractor can treat them like files discovered on disk.
//
// # Politeness
//
//   - Requests are sequential with a configurable delay
//   - Depth and page limits bound the crawl
//   - Response bodies are size limited
//
// # Usage
//
//	spider := crawler.NewSpider(nil, crawler.WithMaxDepth(2), crawler.WithLayout(layout))
//	pages, err := spider.Crawl(ctx, "https://locksmith.example/")
package crawler
