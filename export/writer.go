package export

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/hupe1980/covmatch"
	"github.com/hupe1980/covmatch/blobstore"
	"github.com/hupe1980/covmatch/codec"
)

// Dir is the store prefix under which runs are written.
const Dir = "runs/"

// Ext is the file extension of export objects.
const Ext = ".cvm"

// Name returns the object name of a run.
func Name(runID string) string { return Dir + runID + Ext }

// Writer stores results in a blobstore.
type Writer struct {
	Store       blobstore.Store
	Codec       codec.Codec // nil selects codec.Default
	Compression Compression
	Logger      *covmatch.Logger // nil disables logging
}

// Write encodes res and stores it under Name(res.RunID). Failed runs are written too.
func (w *Writer) Write(ctx context.Context, res *covmatch.Result) (string, error) {
	if res == nil || res.RunID == "" {
		return "", errors.New("export: result has no run id")
	}
	name := Name(res.RunID)

	data, err := Encode(res, w.Codec, w.Compression)
	if err == nil {
		err = w.Store.Put(ctx, name, data)
	}
	w.logger().LogExport(ctx, name, len(data), err)
	if err != nil {
		return "", err
	}
	return name, nil
}

// Read loads a stored result by object name.
func (w *Writer) Read(ctx context.Context, name string) (*covmatch.Result, error) {
	data, err := w.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// List returns the run ids of all stored results.
func (w *Writer) List(ctx context.Context) ([]string, error) {
	names, err := w.Store.List(ctx, Dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if path.Ext(name) != Ext {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, Dir), Ext))
	}
	return ids, nil
}

func (w *Writer) logger() *covmatch.Logger {
	if w.Logger == nil {
		return covmatch.NoopLogger()
	}
	return w.Logger
}
