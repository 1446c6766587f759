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

package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDecodedLabelsBySymbolCount(t *testing.T) {
	none := testutil.ToFloat64(decodes.WithLabelValues("none"))
	one := testutil.ToFloat64(decodes.WithLabelValues("one"))
	many := testutil.ToFloat64(decodes.WithLabelValues("many"))

	Decoded(0)
	Decoded(1)
	Decoded(2)
	Decoded(5)

	assert.Equal(t, none+1, testutil.ToFloat64(decodes.WithLabelValues("none")))
	assert.Equal(t, one+1, testutil.ToFloat64(decodes.WithLabelValues("one")))
	assert.Equal(t, many+2, testutil.ToFloat64(decodes.WithLabelValues("many")))
}

func TestFinishedCountsByStatus(t *testing.T) {
	before := testutil.ToFloat64(results.WithLabelValues("success"))
	Finished("success")
	assert.Equal(t, before+1, testutil.ToFloat64(results.WithLabelValues("success")))
}

func TestServeWithoutAddressIsDisabled(t *testing.T) {
	assert.NoError(t, Serve(context.Background(), ""))
}
