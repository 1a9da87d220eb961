package cmd

import "github.com/dtcenter/METplus-sub003/lang/diag"

var (
	ErrWriteOutput = diag.ErrIO.Derive("write output")
	ErrYAMLMarshal = diag.NewError("marshal YAML")
	ErrWatch       = diag.ErrIO.Derive("watch sources")
)
