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

package ncio

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gcdiag"
	"github.com/spatialmodel/gcdiag/internal/hash"
	"github.com/spatialmodel/gcdiag/internal/metrics"
)

// Reader reads model files, keeping recently read fields and datasets in
// memory. It is safe for concurrent use. Results are shared between
// callers and must not be modified.
type Reader struct {
	// CacheSize specifies the number of results held in memory.
	// The default is 20.
	CacheSize int

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics

	initOnce sync.Once
	cache    *requestcache.Cache
}

type fieldRequest struct {
	paths []string
	name  string
}

type datasetRequest struct {
	path string
}

func (r *Reader) init() {
	r.initOnce.Do(func() {
		if r.CacheSize == 0 {
			r.CacheSize = 20
		}
		if r.Log == nil {
			r.Log = logrus.StandardLogger()
		}
		r.cache = requestcache.NewCache(r.process, runtime.GOMAXPROCS(-1),
			requestcache.Deduplicate(), requestcache.Memory(r.CacheSize))
	})
}

func (r *Reader) process(ctx context.Context, request interface{}) (interface{}, error) {
	switch req := request.(type) {
	case fieldRequest:
		r.Log.WithFields(logrus.Fields{
			"variable": req.name,
			"files":    len(req.paths),
		}).Info("reading model field")
		f, err := ReadField(req.paths, req.name)
		if err != nil {
			return nil, err
		}
		for range req.paths {
			r.Metrics.FileRead("model")
		}
		return f, nil
	case datasetRequest:
		r.Log.WithField("file", req.path).Info("reading model dataset")
		ds, err := ReadDataset(req.path)
		if err != nil {
			return nil, err
		}
		r.Metrics.FileRead("model")
		return ds, nil
	default:
		panic(fmt.Errorf("ncio: invalid request type %T", request))
	}
}

// Field reads variable name from paths as ReadField does.
func (r *Reader) Field(ctx context.Context, paths []string, name string) (*gcdiag.ModelField, error) {
	r.init()
	key, err := hash.FileKey(paths, name)
	if err != nil {
		return nil, fmt.Errorf("ncio: %w", err)
	}
	req := r.cache.NewRequest(ctx, fieldRequest{paths: paths, name: name}, "field_"+key)
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(*gcdiag.ModelField), nil
}

// Dataset reads every data variable in the file at path as ReadDataset
// does.
func (r *Reader) Dataset(ctx context.Context, path string) (gcdiag.Dataset, error) {
	r.init()
	key, err := hash.FileKey([]string{path}, "")
	if err != nil {
		return nil, fmt.Errorf("ncio: %w", err)
	}
	req := r.cache.NewRequest(ctx, datasetRequest{path: path}, "dataset_"+key)
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(gcdiag.Dataset), nil
}
