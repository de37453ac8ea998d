// Package api
// Author: momentics <momentics@gmail.com>
//
// Device option contracts. Options are opaque to the wrappers and are handed
// to the backend unchanged; the backend applies them to its OptionStorage.

package api

// SettableOption writes itself into the platform option storage.
type SettableOption interface {
	Store(s *OptionStorage) error
}

// GettableOption reads its value from the platform option storage.
type GettableOption interface {
	Load(s *OptionStorage) error
}
