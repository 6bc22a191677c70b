// Package inbound routes external completion events, browser redirects and
// server-to-server webhooks, to the owning aggregator's handler and feeds
// the extracted outcome into the correlation store.
package inbound
