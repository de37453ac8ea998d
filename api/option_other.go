//go:build !linux && !windows

package api

// OptionStorage is empty on platforms without a serial backend.
type OptionStorage struct{}
