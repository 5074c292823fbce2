// Package types holds the error taxonomy shared by the batching, upstream,
// and HTTP layers of the embedding batch proxy.
package types
