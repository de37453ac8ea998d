//go:build !linux && !windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package options

import "github.com/momentics/hioload-io/api"

func (b BaudRate) Store(*api.OptionStorage) error      { return api.ErrNotSupported }
func (b *BaudRate) Load(*api.OptionStorage) error      { return api.ErrNotSupported }
func (c CharacterSize) Store(*api.OptionStorage) error { return api.ErrNotSupported }
func (c *CharacterSize) Load(*api.OptionStorage) error { return api.ErrNotSupported }
func (f FlowControl) Store(*api.OptionStorage) error   { return api.ErrNotSupported }
func (f *FlowControl) Load(*api.OptionStorage) error   { return api.ErrNotSupported }
func (p Parity) Store(*api.OptionStorage) error        { return api.ErrNotSupported }
func (p *Parity) Load(*api.OptionStorage) error        { return api.ErrNotSupported }
func (s StopBits) Store(*api.OptionStorage) error      { return api.ErrNotSupported }
func (s *StopBits) Load(*api.OptionStorage) error      { return api.ErrNotSupported }
