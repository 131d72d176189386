package model

import (
	"github.com/linnyr-go/linnyr/dataset"
	"github.com/linnyr-go/linnyr/expr"
)

// DatasetEntity wraps a dataset.Dataset with the entity identity the
// store needs (ID, Code), keeping the interpolation/modifier-matching
// logic itself in the dataset package. The reserved "Equations"
// dataset is an ordinary DatasetEntity whose every modifier carries a
// wildcard selector.
type DatasetEntity struct {
	ID   ID
	Code string
	Data *dataset.Dataset
}

func NewDatasetEntity(id ID, code string, d *dataset.Dataset) *DatasetEntity {
	return &DatasetEntity{ID: id, Code: code, Data: d}
}

func (d *DatasetEntity) ValueAt(t int, modelDt float64) expr.Value {
	return d.Data.ComputeVector(t, modelDt)
}
