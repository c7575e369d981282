/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package rdrstore is the RDR container engine: it writes and reads the
// literal HDF5 tree spec.md §3/§4.5/§4.6 requires (`/All_Data/<short>_All`
// datasets, `/Data_Products/<short>` groups with their `_Aggr`/`_Gran_<k>`
// datasets and attributes) using the cgo HDF5 binding
// gonum.org/v1/hdf5. Every other package in this module works purely in
// terms of Go structs and knows nothing about the storage engine; this
// package is the only place the HDF5 C library is touched.
//
// One simplification is recorded here rather than left implicit:
// gonum.org/v1/hdf5 does not expose HDF5's object-reference datatype
// (H5R), so the `_Aggr` dataset's reference list (spec.md §4.5 item 3)
// is written as a fixed-length ASCII string array holding each
// referenced dataset's full path, instead of literal HDF5 object
// references. Every group, dataset, and attribute this package writes is
// otherwise the real HDF5 construct spec.md names — see DESIGN.md.
package rdrstore

import (
	"fmt"
	"os"
	"strings"

	"github.com/dchest/safefile"
	"gonum.org/v1/hdf5"

	"github.com/bmflynn/rdr/rdrerr"
)

// FileAttrs are the root-level attributes written once per RDR file.
type FileAttrs struct {
	Distributor       string
	MissionName       string
	PlatformShortName string
	DatasetSource     string
	HDFCreationDate   string
	HDFCreationTime   string
}

// GranuleAttrs are the per-granule attributes spec.md §3 requires
// under `<short>_Gran_<k>`.
type GranuleAttrs struct {
	BeginningDate      string
	BeginningTime      string
	EndingDate         string
	EndingTime         string
	BeginningTimeIET   int64
	EndingTimeIET      int64
	CreationDate       string
	CreationTime       string
	GranuleID          string
	GranuleVersion     int
	GranuleStatus      string
	LEOAFlag           string
	PacketType         string
	PacketTypeCount    int
	PercentMissingData float64
	ReferenceID        string
}

// AggrAttrs are the aggregation attributes written alongside a
// product's `<short>_Aggr` dataset.
type AggrAttrs struct {
	BeginningDate        string
	BeginningTime        string
	EndingDate           string
	EndingTime           string
	BeginningOrbitNumber int64
	NumberGranules       int
	BeginningGranuleID   string
	EndingGranuleID      string
}

const (
	rootAllDataGroup     = "All_Data"
	rootDataProductsGroup = "Data_Products"
)

func allDataGroupName(shortName string) string { return shortName + "_All" }
func aggrDatasetName(shortName string) string  { return shortName + "_Aggr" }
func granDatasetName(shortName string, k int) string {
	return fmt.Sprintf("%s_Gran_%d", shortName, k)
}
func rawAPDatasetName(k int) string { return fmt.Sprintf("RawApplicationPackets_%d", k) }

// attrHost is satisfied by *hdf5.File, *hdf5.Group, and *hdf5.Dataset:
// anything HDF5 attributes can be attached to.
type attrHost interface {
	CreateAttribute(name string, dtype *hdf5.Datatype, dspace *hdf5.Dataspace) (*hdf5.Attribute, error)
	OpenAttribute(name string) (*hdf5.Attribute, error)
}

func writeStringAttr(h attrHost, name, value string) error {
	dtype, err := hdf5.NewDatatypeFromValue(value)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating string datatype for "+name, err)
	}
	defer dtype.Close()
	dspace, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating scalar dataspace for "+name, err)
	}
	defer dspace.Close()
	attr, err := h.CreateAttribute(name, dtype, dspace)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating attribute "+name, err)
	}
	defer attr.Close()
	if err := attr.Write(&value, dtype); err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "writing attribute "+name, err)
	}
	return nil
}

func writeInt64Attr(h attrHost, name string, value int64) error {
	dtype, err := hdf5.NewDatatypeFromValue(value)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating int64 datatype for "+name, err)
	}
	defer dtype.Close()
	dspace, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating scalar dataspace for "+name, err)
	}
	defer dspace.Close()
	attr, err := h.CreateAttribute(name, dtype, dspace)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating attribute "+name, err)
	}
	defer attr.Close()
	if err := attr.Write(&value, dtype); err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "writing attribute "+name, err)
	}
	return nil
}

func writeFloat64Attr(h attrHost, name string, value float64) error {
	dtype, err := hdf5.NewDatatypeFromValue(value)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating float64 datatype for "+name, err)
	}
	defer dtype.Close()
	dspace, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating scalar dataspace for "+name, err)
	}
	defer dspace.Close()
	attr, err := h.CreateAttribute(name, dtype, dspace)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating attribute "+name, err)
	}
	defer attr.Close()
	if err := attr.Write(&value, dtype); err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "writing attribute "+name, err)
	}
	return nil
}

func readStringAttr(h attrHost, name string) (string, error) {
	attr, err := h.OpenAttribute(name)
	if err != nil {
		return "", rdrerr.Wrap(rdrerr.Hdf5Error, "opening attribute "+name, err)
	}
	defer attr.Close()
	dtype, err := attr.Datatype()
	if err != nil {
		return "", rdrerr.Wrap(rdrerr.Hdf5Error, "reading datatype for "+name, err)
	}
	defer dtype.Close()
	buf := make([]byte, dtype.Size())
	if err := attr.Read(&buf, dtype); err != nil {
		return "", rdrerr.Wrap(rdrerr.Hdf5Error, "reading attribute "+name, err)
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

func readInt64Attr(h attrHost, name string) (int64, error) {
	attr, err := h.OpenAttribute(name)
	if err != nil {
		return 0, rdrerr.Wrap(rdrerr.Hdf5Error, "opening attribute "+name, err)
	}
	defer attr.Close()
	dtype, err := attr.Datatype()
	if err != nil {
		return 0, rdrerr.Wrap(rdrerr.Hdf5Error, "reading datatype for "+name, err)
	}
	defer dtype.Close()
	var v int64
	if err := attr.Read(&v, dtype); err != nil {
		return 0, rdrerr.Wrap(rdrerr.Hdf5Error, "reading attribute "+name, err)
	}
	return v, nil
}

func readFloat64Attr(h attrHost, name string) (float64, error) {
	attr, err := h.OpenAttribute(name)
	if err != nil {
		return 0, rdrerr.Wrap(rdrerr.Hdf5Error, "opening attribute "+name, err)
	}
	defer attr.Close()
	dtype, err := attr.Datatype()
	if err != nil {
		return 0, rdrerr.Wrap(rdrerr.Hdf5Error, "reading datatype for "+name, err)
	}
	defer dtype.Close()
	var v float64
	if err := attr.Read(&v, dtype); err != nil {
		return 0, rdrerr.Wrap(rdrerr.Hdf5Error, "reading attribute "+name, err)
	}
	return v, nil
}

// writeFileAttrs attaches spec.md §3's root attributes directly to the
// file's root group.
func writeFileAttrs(f *hdf5.File, fa FileAttrs) error {
	for _, kv := range []struct {
		name  string
		value string
	}{
		{"Distributor", fa.Distributor},
		{"Mission_Name", fa.MissionName},
		{"Platform_Short_Name", fa.PlatformShortName},
		{"N_Dataset_Source", fa.DatasetSource},
		{"N_HDF_Creation_Date", fa.HDFCreationDate},
		{"N_HDF_Creation_Time", fa.HDFCreationTime},
	} {
		if err := writeStringAttr(f, kv.name, kv.value); err != nil {
			return err
		}
	}
	return nil
}

func readFileAttrs(f *hdf5.File) (FileAttrs, error) {
	var fa FileAttrs
	var err error
	if fa.Distributor, err = readStringAttr(f, "Distributor"); err != nil {
		return FileAttrs{}, err
	}
	if fa.MissionName, err = readStringAttr(f, "Mission_Name"); err != nil {
		return FileAttrs{}, err
	}
	if fa.PlatformShortName, err = readStringAttr(f, "Platform_Short_Name"); err != nil {
		return FileAttrs{}, err
	}
	if fa.DatasetSource, err = readStringAttr(f, "N_Dataset_Source"); err != nil {
		return FileAttrs{}, err
	}
	if fa.HDFCreationDate, err = readStringAttr(f, "N_HDF_Creation_Date"); err != nil {
		return FileAttrs{}, err
	}
	if fa.HDFCreationTime, err = readStringAttr(f, "N_HDF_Creation_Time"); err != nil {
		return FileAttrs{}, err
	}
	return fa, nil
}

// writeGranuleAttrs attaches the `<short>_Gran_<k>` attribute set
// (spec.md §3) to the granule's scalar dataset.
func writeGranuleAttrs(dset *hdf5.Dataset, a GranuleAttrs) error {
	strs := []struct {
		name  string
		value string
	}{
		{"Beginning_Date", a.BeginningDate},
		{"Beginning_Time", a.BeginningTime},
		{"Ending_Date", a.EndingDate},
		{"Ending_Time", a.EndingTime},
		{"N_Creation_Date", a.CreationDate},
		{"N_Creation_Time", a.CreationTime},
		{"N_Granule_ID", a.GranuleID},
		{"N_Granule_Status", a.GranuleStatus},
		{"N_LEOA_Flag", a.LEOAFlag},
		{"N_Packet_Type", a.PacketType},
		{"N_Reference_ID", a.ReferenceID},
	}
	for _, kv := range strs {
		if err := writeStringAttr(dset, kv.name, kv.value); err != nil {
			return err
		}
	}
	ints := []struct {
		name  string
		value int64
	}{
		{"N_Beginning_Time_IET", a.BeginningTimeIET},
		{"N_Ending_Time_IET", a.EndingTimeIET},
		{"N_Granule_Version", int64(a.GranuleVersion)},
		{"N_Packet_Type_Count", int64(a.PacketTypeCount)},
	}
	for _, kv := range ints {
		if err := writeInt64Attr(dset, kv.name, kv.value); err != nil {
			return err
		}
	}
	return writeFloat64Attr(dset, "N_Percent_Missing_Data", a.PercentMissingData)
}

func readGranuleAttrs(dset *hdf5.Dataset) (GranuleAttrs, error) {
	var a GranuleAttrs
	var err error
	if a.BeginningDate, err = readStringAttr(dset, "Beginning_Date"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.BeginningTime, err = readStringAttr(dset, "Beginning_Time"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.EndingDate, err = readStringAttr(dset, "Ending_Date"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.EndingTime, err = readStringAttr(dset, "Ending_Time"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.CreationDate, err = readStringAttr(dset, "N_Creation_Date"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.CreationTime, err = readStringAttr(dset, "N_Creation_Time"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.GranuleID, err = readStringAttr(dset, "N_Granule_ID"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.GranuleStatus, err = readStringAttr(dset, "N_Granule_Status"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.LEOAFlag, err = readStringAttr(dset, "N_LEOA_Flag"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.PacketType, err = readStringAttr(dset, "N_Packet_Type"); err != nil {
		return GranuleAttrs{}, err
	}
	if a.ReferenceID, err = readStringAttr(dset, "N_Reference_ID"); err != nil {
		return GranuleAttrs{}, err
	}
	var iv int64
	if iv, err = readInt64Attr(dset, "N_Beginning_Time_IET"); err != nil {
		return GranuleAttrs{}, err
	}
	a.BeginningTimeIET = iv
	if iv, err = readInt64Attr(dset, "N_Ending_Time_IET"); err != nil {
		return GranuleAttrs{}, err
	}
	a.EndingTimeIET = iv
	if iv, err = readInt64Attr(dset, "N_Granule_Version"); err != nil {
		return GranuleAttrs{}, err
	}
	a.GranuleVersion = int(iv)
	if iv, err = readInt64Attr(dset, "N_Packet_Type_Count"); err != nil {
		return GranuleAttrs{}, err
	}
	a.PacketTypeCount = int(iv)
	if a.PercentMissingData, err = readFloat64Attr(dset, "N_Percent_Missing_Data"); err != nil {
		return GranuleAttrs{}, err
	}
	return a, nil
}

// writeAggrAttrs attaches the aggregation attribute set (spec.md §4.5
// item 3) to a product's `<short>_Aggr` dataset.
func writeAggrAttrs(dset *hdf5.Dataset, a AggrAttrs) error {
	strs := []struct {
		name  string
		value string
	}{
		{"AggregateBeginningDate", a.BeginningDate},
		{"AggregateBeginningTime", a.BeginningTime},
		{"AggregateEndingDate", a.EndingDate},
		{"AggregateEndingTime", a.EndingTime},
		{"AggregateBeginningGranuleID", a.BeginningGranuleID},
		{"AggregateEndingGranuleID", a.EndingGranuleID},
	}
	for _, kv := range strs {
		if err := writeStringAttr(dset, kv.name, kv.value); err != nil {
			return err
		}
	}
	if err := writeInt64Attr(dset, "AggregateBeginningOrbitNumber", a.BeginningOrbitNumber); err != nil {
		return err
	}
	return writeInt64Attr(dset, "AggregateNumberGranules", int64(a.NumberGranules))
}

func readAggrAttrs(dset *hdf5.Dataset) (AggrAttrs, error) {
	var a AggrAttrs
	var err error
	if a.BeginningDate, err = readStringAttr(dset, "AggregateBeginningDate"); err != nil {
		return AggrAttrs{}, err
	}
	if a.BeginningTime, err = readStringAttr(dset, "AggregateBeginningTime"); err != nil {
		return AggrAttrs{}, err
	}
	if a.EndingDate, err = readStringAttr(dset, "AggregateEndingDate"); err != nil {
		return AggrAttrs{}, err
	}
	if a.EndingTime, err = readStringAttr(dset, "AggregateEndingTime"); err != nil {
		return AggrAttrs{}, err
	}
	if a.BeginningGranuleID, err = readStringAttr(dset, "AggregateBeginningGranuleID"); err != nil {
		return AggrAttrs{}, err
	}
	if a.EndingGranuleID, err = readStringAttr(dset, "AggregateEndingGranuleID"); err != nil {
		return AggrAttrs{}, err
	}
	if a.BeginningOrbitNumber, err = readInt64Attr(dset, "AggregateBeginningOrbitNumber"); err != nil {
		return AggrAttrs{}, err
	}
	n, err := readInt64Attr(dset, "AggregateNumberGranules")
	if err != nil {
		return AggrAttrs{}, err
	}
	a.NumberGranules = int(n)
	return a, nil
}

// writeByteDataset writes a granule's RawAP blob as a 1-D byte dataset
// under group g (spec.md §4.5's `RawApplicationPackets_<k>`).
func writeByteDataset(g *hdf5.Group, name string, data []byte) error {
	dspace, err := hdf5.CreateSimpleDataspace([]uint{uint(len(data))}, nil)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating dataspace for "+name, err)
	}
	defer dspace.Close()
	dtype, err := hdf5.NewDatatypeFromValue(byte(0))
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating byte datatype for "+name, err)
	}
	defer dtype.Close()
	dset, err := g.CreateDataset(name, dtype, dspace)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating dataset "+name, err)
	}
	defer dset.Close()
	if err := dset.Write(&data); err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "writing dataset "+name, err)
	}
	return nil
}

func readByteDataset(dset *hdf5.Dataset) ([]byte, error) {
	dspace := dset.Space()
	defer dspace.Close()
	dims, _, err := dspace.SimpleExtentDims()
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "reading dataspace extent", err)
	}
	n := uint(0)
	if len(dims) > 0 {
		n = dims[0]
	}
	buf := make([]byte, n)
	if err := dset.Read(&buf); err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "reading dataset", err)
	}
	return buf, nil
}

// createScalarDataset creates a scalar placeholder dataset for the
// `<short>_Gran_<k>` entry spec.md §3 describes as "scalar dataset
// holding per-granule attributes": the granule's real payload already
// lives in the RawAP blob, so this dataset's value is just its own
// granule index and its attributes carry the metadata.
func createScalarDataset(g *hdf5.Group, name string, value int64) (*hdf5.Dataset, error) {
	dspace, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "creating scalar dataspace for "+name, err)
	}
	defer dspace.Close()
	dtype, err := hdf5.NewDatatypeFromValue(value)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "creating datatype for "+name, err)
	}
	defer dtype.Close()
	dset, err := g.CreateDataset(name, dtype, dspace)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "creating dataset "+name, err)
	}
	if err := dset.Write(&value); err != nil {
		dset.Close()
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "writing dataset "+name, err)
	}
	return dset, nil
}

// createRefsDataset writes the `<short>_Aggr` dataset: a fixed-length
// ASCII array of the full HDF5 paths of every `RawApplicationPackets_<k>`
// dataset belonging to this product, standing in for the object
// references spec.md §4.5 calls for (see the package doc comment).
func createRefsDataset(g *hdf5.Group, name string, refs []string) (*hdf5.Dataset, error) {
	width := 1
	for _, r := range refs {
		if len(r) > width {
			width = len(r)
		}
	}
	padded := make([]byte, len(refs)*width)
	for i, r := range refs {
		copy(padded[i*width:(i+1)*width], r)
	}

	dspace, err := hdf5.CreateSimpleDataspace([]uint{uint(len(refs))}, nil)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "creating dataspace for "+name, err)
	}
	defer dspace.Close()
	dtype, err := hdf5.NewDatatypeFromValue(strings.Repeat("\x00", width))
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "creating string datatype for "+name, err)
	}
	defer dtype.Close()
	dset, err := g.CreateDataset(name, dtype, dspace)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "creating dataset "+name, err)
	}
	if len(refs) > 0 {
		if err := dset.Write(&padded); err != nil {
			dset.Close()
			return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "writing dataset "+name, err)
		}
	}
	return dset, nil
}

// granuleData is one granule's persisted payload and metadata, ready
// to be written under a product's tree.
type granuleData struct {
	raw   []byte
	attrs GranuleAttrs
}

// writeProductTree writes one product's full spec.md §4.5 subtree:
// its `RawApplicationPackets_<k>` datasets under
// `/All_Data/<short>_All`, and its `<short>_Gran_<k>` datasets plus
// `<short>_Aggr` dataset under `/Data_Products/<short>`.
func writeProductTree(allData, dataProducts *hdf5.Group, shortName string, granules []granuleData, aggr AggrAttrs) error {
	allGroup, err := allData.CreateGroup(allDataGroupName(shortName))
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating "+allDataGroupName(shortName)+" group", err)
	}
	defer allGroup.Close()

	prodGroup, err := dataProducts.CreateGroup(shortName)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Hdf5Error, "creating "+shortName+" group", err)
	}
	defer prodGroup.Close()

	refs := make([]string, 0, len(granules))
	for k, g := range granules {
		if err := writeByteDataset(allGroup, rawAPDatasetName(k), g.raw); err != nil {
			return err
		}

		dset, err := createScalarDataset(prodGroup, granDatasetName(shortName, k), int64(k))
		if err != nil {
			return err
		}
		if err := writeGranuleAttrs(dset, g.attrs); err != nil {
			dset.Close()
			return err
		}
		dset.Close()

		refs = append(refs, "/"+rootAllDataGroup+"/"+allDataGroupName(shortName)+"/"+rawAPDatasetName(k))
	}

	aggrDset, err := createRefsDataset(prodGroup, aggrDatasetName(shortName), refs)
	if err != nil {
		return err
	}
	defer aggrDset.Close()
	return writeAggrAttrs(aggrDset, aggr)
}

// scopedCreate reserves a uniquely-named temp file in outPath's
// directory the way safefile.Create does, then hands that path to
// the HDF5 library (which needs to own the file itself and cannot
// write through an io.Writer). The returned commit/abort closures
// reproduce safefile's Commit/discard semantics by hand: rename on
// success, remove on any failure, so no partial file is ever left at
// outPath (spec.md §4.5, §9).
func scopedCreate(outPath string) (f *hdf5.File, commit func() error, abort func(), err error) {
	fout, ferr := safefile.Create(outPath, 0o644)
	if ferr != nil {
		return nil, nil, nil, rdrerr.Wrap(rdrerr.Io, "reserving output file", ferr)
	}
	tmpPath := fout.Name()
	if cerr := fout.Close(); cerr != nil {
		os.Remove(tmpPath)
		return nil, nil, nil, rdrerr.Wrap(rdrerr.Io, "closing reserved temp file", cerr)
	}

	f, err = hdf5.CreateFile(tmpPath, hdf5.F_ACC_TRUNC)
	if err != nil {
		os.Remove(tmpPath)
		return nil, nil, nil, rdrerr.Wrap(rdrerr.Hdf5Error, "creating HDF5 file", err)
	}

	commit = func() error {
		if err := f.Close(); err != nil {
			os.Remove(tmpPath)
			return rdrerr.Wrap(rdrerr.Hdf5Error, "closing HDF5 file", err)
		}
		if err := os.Rename(tmpPath, outPath); err != nil {
			os.Remove(tmpPath)
			return rdrerr.Wrap(rdrerr.Io, "committing output file", err)
		}
		return nil
	}
	abort = func() {
		f.Close()
		os.Remove(tmpPath)
	}
	return f, commit, abort, nil
}
