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

// Package hash computes cache keys.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/davecgh/go-spew/spew"
)

// Hash returns a hash key for the specified object.
func Hash(object interface{}) string {
	if s, ok := object.(fmt.Stringer); ok {
		return s.String()
	}
	h := fnv.New128a()

	e := gob.NewEncoder(h)
	if err := e.Encode(object); err == nil {
		bKey := h.Sum([]byte{})
		return fmt.Sprintf("%x", bKey[0:h.Size()])
	}
	// gob cannot encode some values (e.g. NaN map keys or
	// unexported fields), so fall back to spew.
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", object)
	bKey := h.Sum([]byte{})
	return fmt.Sprintf("%x", bKey[0:h.Size()])
}

type fileStamp struct {
	Path    string
	Size    int64
	ModTime int64
}

type fileRequest struct {
	Files []fileStamp
	Name  string
}

// FileKey returns a key for reading variable name from files. The key
// changes when any of the files is modified.
func FileKey(files []string, name string) (string, error) {
	r := fileRequest{Name: name, Files: make([]fileStamp, len(files))}
	for i, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			return "", fmt.Errorf("hash: %w", err)
		}
		r.Files[i] = fileStamp{Path: f, Size: fi.Size(), ModTime: fi.ModTime().UnixNano()}
	}
	return Hash(r), nil
}
