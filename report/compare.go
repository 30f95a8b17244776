/*
Copyright © 2019 the InMAP authors.
This file is part of gcdiag.

gcdiag is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gcdiag is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gcdiag.  If not, see <http://www.gnu.org/licenses/>.
*/

package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spatialmodel/gcdiag"
)

// WriteCompareStats writes the global statistics of one variable in two
// datasets, e.g.
//
//	Data units:
//	    Ref:  molec/cm2/s
//	    Dev:  molec/cm2/s
//	Array sizes:
//	    Ref:  (1, 47, 46, 72)
//	    Dev:  (1, 47, 46, 72)
//	Global stats:
//	  Mean:
//	    Ref:  1770774.125
//	    Dev:  1770774.125
//	...
func WriteCompareStats(w io.Writer, c *gcdiag.StatsComparison, refLabel, devLabel string) error {
	var b strings.Builder
	pair := func(ref, dev string) {
		fmt.Fprintf(&b, "    %s:  %s\n", refLabel, ref)
		fmt.Fprintf(&b, "    %s:  %s\n", devLabel, dev)
	}
	b.WriteString("Data units:\n")
	pair(c.Ref.Units, c.Dev.Units)
	b.WriteString("Array sizes:\n")
	pair(shape(c.Ref.Shape), shape(c.Dev.Shape))
	b.WriteString("Global stats:\n")
	for _, s := range []struct {
		name     string
		ref, dev float64
	}{
		{"Mean", c.Ref.Mean, c.Dev.Mean},
		{"Min", c.Ref.Min, c.Dev.Min},
		{"Max", c.Ref.Max, c.Dev.Max},
		{"Sum", c.Ref.Sum, c.Dev.Sum},
	} {
		fmt.Fprintf(&b, "  %s:\n", s.name)
		pair(strconv.FormatFloat(s.ref, 'g', -1, 64), strconv.FormatFloat(s.dev, 'g', -1, 64))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func shape(s []int) string {
	p := make([]string, len(s))
	for i, v := range s {
		p[i] = strconv.Itoa(v)
	}
	return "(" + strings.Join(p, ", ") + ")"
}

// WriteVarnameComparison writes the lists of variables that two datasets
// share and do not share.
func WriteVarnameComparison(w io.Writer, c gcdiag.VarnameComparison, refLabel, devLabel string) error {
	var b strings.Builder
	list := func(title string, names []string) {
		fmt.Fprintf(&b, "%s (%d):\n", title, len(names))
		for _, n := range names {
			fmt.Fprintf(&b, "    %s\n", n)
		}
	}
	list("Common variables", c.Common)
	list("Common 1-D variables", c.Common1D)
	list("Common 2-D variables", c.Common2D)
	list("Common 3-D variables", c.Common3D)
	list("Only in "+refLabel, c.RefOnly)
	list("Only in "+devLabel, c.DevOnly)
	list("Different dimensions", c.DimMismatch)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSigDiffs writes the names of variables with significant
// differences, one per line, after a header naming the collection.
func WriteSigDiffs(w io.Writer, collection string, names []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s significant differences (%d) generated %s:\n",
		collection, len(names), clock.Now().UTC().Format("2006-01-02 15:04:05"))
	for _, n := range names {
		fmt.Fprintf(&b, "    %s\n", n)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
