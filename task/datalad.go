// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package task

import (
	"context"

	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/errors"
)

// Field names of the datalad task.
const (
	InFile      = "in_file"
	DatasetPath = "dataset_path"
	DatasetURL  = "dataset_url"
	OutFile     = "out_file"
)

func init() {
	Register("datalad", func(f dsfetch.Fetcher) Task {
		return &Datalad{Fetcher: f}
	})
}

var (
	dataladInputs = []Field{
		{Name: InFile, Kind: String, Mandatory: true, Help: "Path to the data to be downloaded through datalad"},
		{Name: DatasetPath, Kind: Directory, Mandatory: true, Help: "Local path to the dataset"},
		{Name: DatasetURL, Kind: String, Help: "URL from which the dataset is installed if it is not present"},
	}
	dataladOutputs = []Field{
		{Name: OutFile, Kind: File, Requires: []string{InFile}, Template: "{" + InFile + "}", Help: "Absolute path of the retrieved file"},
	}
)

// Datalad is a task that retrieves a single file from a dataset,
// installing the dataset first if it is absent.
type Datalad struct {
	Fetcher dsfetch.Fetcher
}

// Inputs implements Task.
func (*Datalad) Inputs() []Field { return dataladInputs }

// Outputs implements Task.
func (*Datalad) Outputs() []Field { return dataladOutputs }

func (d *Datalad) request(inputs Values) dsfetch.Request {
	return dsfetch.Request{
		Dataset: dsfetch.Dataset{
			Path:   inputs[DatasetPath],
			Source: inputs[DatasetURL],
		},
		File: inputs[InFile],
	}
}

// Run fetches the file named by in_file and binds its absolute path
// to out_file.
func (d *Datalad) Run(ctx context.Context, inputs Values) (Values, error) {
	if err := Validate(d, inputs); err != nil {
		return nil, errors.E("datalad", err)
	}
	res, err := d.Fetcher.Fetch(ctx, d.request(inputs))
	if err != nil {
		return nil, errors.E("datalad", err)
	}
	outputs, err := Bind(d, res.Path)
	if err != nil {
		return nil, errors.E("datalad", err)
	}
	return outputs, nil
}

// ListOutputs returns the absolute path out_file will have, computed
// from the output template relative to dataset_path.
func (d *Datalad) ListOutputs(inputs Values) (Values, error) {
	if err := Validate(d, inputs); err != nil {
		return nil, errors.E("datalad", err)
	}
	outputs := make(Values)
	for _, f := range dataladOutputs {
		path, err := absJoin(inputs[DatasetPath], inputs.Expand(f.Template))
		if err != nil {
			return nil, errors.E("datalad", f.Name, err)
		}
		outputs[f.Name] = path
	}
	return outputs, nil
}
