// Package sink defines where a job's encoded output ends up.
package sink

// Sink receives one encoded frame per job run. Location describes where the
// frame went and is empty when it was not persisted.
type Sink interface {
	Write(data []byte) error
	Location() string
}
