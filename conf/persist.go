package conf

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/patrikhermansson/mff/core"
)

// serializedDataset is the persisted form of a Dataset: flat numeric arrays with
// a fixed per-configuration record shape (Neighbors×5).
type serializedDataset struct {
	Neighbors int
	Confs     []float64 // N×Neighbors×5, row-major
	Energies  []float64 // N
	Forces    []float64 // N×3
}

// Save writes the dataset to disk using gob encoding.
func (d Dataset) Save(path string) (err error) {
	m := d.Neighbors()
	ser := serializedDataset{
		Neighbors: m,
		Confs:     make([]float64, 0, d.Len()*m*RecordWidth),
		Energies:  append([]float64(nil), d.Energies...),
		Forces:    make([]float64, 0, d.Len()*3),
	}
	for i, c := range d.Confs {
		ser.Confs = append(ser.Confs, c.data...)
		ser.Forces = append(ser.Forces, d.Forces[i][:]...)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return gob.NewEncoder(f).Encode(ser)
}

// Load reads a dataset written by Save and validates its shape.
func Load(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()

	var ser serializedDataset
	if err := gob.NewDecoder(f).Decode(&ser); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	n := len(ser.Energies)
	stride := ser.Neighbors * RecordWidth
	if len(ser.Confs) != n*stride || len(ser.Forces) != n*3 {
		return Dataset{}, fmt.Errorf("dataset %s: arrays do not match %d×%d×5: %w",
			path, n, ser.Neighbors, core.ErrConfigurationShape)
	}
	confs := make([]Configuration, n)
	forces := make([]core.Vec3, n)
	for i := 0; i < n; i++ {
		c, err := FromFlat(ser.Confs[i*stride:(i+1)*stride], ser.Neighbors)
		if err != nil {
			return Dataset{}, fmt.Errorf("dataset %s: %w", path, err)
		}
		confs[i] = c
		copy(forces[i][:], ser.Forces[i*3:(i+1)*3])
	}
	return NewDataset(confs, ser.Energies, forces)
}
