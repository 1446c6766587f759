// barcode-scanner - decode barcodes placed inside a viewfinder box
//  Copyright (C) 2020, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package throttle

import "fmt"

type ThrottlerConfig struct {
	ApplyThrottling bool    `yaml:"apply-throttling"`
	DecodesPerSec   float64 `yaml:"decodes-per-sec"`
	Burst           int64   `yaml:"burst"`
}

func DefaultThrottlerConfig() ThrottlerConfig {
	return ThrottlerConfig{
		ApplyThrottling: true,
		DecodesPerSec:   10,
		Burst:           5,
	}
}

func (c ThrottlerConfig) Validate() error {
	if !c.ApplyThrottling {
		return nil
	}
	if c.DecodesPerSec <= 0 {
		return fmt.Errorf("decodes-per-sec must be positive, got %v", c.DecodesPerSec)
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	}
	return nil
}
