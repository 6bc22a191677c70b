// Package transport exposes the connect service over HTTP: the JSON API
// consumed by the widget backend, the browser-facing OAuth completion
// page and the aggregator webhook receiver.
package transport
