package iff

// RecordType identifies which logical schema an IFF line follows. The
// set is fixed by the format specification.
type RecordType int

const (
	Comment         RecordType = 0
	Header          RecordType = 1
	FlightSummary   RecordType = 2
	TrackPoint      RecordType = 3
	FlightPlan      RecordType = 4
	DataSource      RecordType = 5
	Sectorization   RecordType = 6
	MinSafeAltitude RecordType = 7
	FlightProgress  RecordType = 8
	AircraftState   RecordType = 9
	Configuration   RecordType = 10
)

var recordTypeNames = map[RecordType]string{
	Comment:         "comment",
	Header:          "header",
	FlightSummary:   "flight summary",
	TrackPoint:      "track point",
	FlightPlan:      "flight plan",
	DataSource:      "data source",
	Sectorization:   "sectorization",
	MinSafeAltitude: "minimum safe altitude",
	FlightProgress:  "flight progress",
	AircraftState:   "aircraft state",
	Configuration:   "configuration",
}

func (rt RecordType) String() string {
	if name, ok := recordTypeNames[rt]; ok {
		return name
	}
	return "unknown"
}

// acIDColumn is the raw column carrying the aircraft callsign, used for
// entity filtering before normalization renames it to "callsign".
const acIDColumn = "AcId"

// Base columns for each record type, from the version 2.6 format
// specification.
var baseColumns = map[RecordType][]string{
	Comment:         {"recType", "comment"},
	Header:          {"recType", "fileType", "fileFormatVersion"},
	FlightSummary:   {"recType", "recTime", "fltKey", "bcnCode", "cid", "Source", "msgType", "AcId", "recTypeCat", "acType", "Orig", "Dest", "opsType", "estOrig", "estDest"},
	TrackPoint:      {"recType", "recTime", "fltKey", "bcnCode", "cid", "Source", "msgType", "AcId", "recTypeCat", "coord1", "coord2", "alt", "significance", "coord1Accur", "coord2Accur", "altAccur", "groundSpeed", "course", "rateOfClimb", "altQualifier", "altIndicator", "trackPtStatus", "leaderDir", "scratchPad", "msawInhibitInd", "assignedAltString", "controllingFac", "controllingSeg", "receivingFac", "receivingSec", "activeContr", "primaryContr", "kybrdSubset", "kybrdSymbol", "adsCode", "opsType", "airportCode"},
	FlightPlan:      {"recType", "recTime", "fltKey", "bcnCode", "cid", "Source", "msgType", "AcId", "recTypeCat", "acType", "Orig", "Dest", "altcode", "alt", "maxAlt", "assignedAltString", "requestedAltString", "route", "estTime", "fltCat", "perfCat", "opsType", "equipList", "coordinationTime", "coordinationTimeType", "leaderDir", "scratchPad1", "scratchPad2", "fixPairScratchPad", "prefDepArrRoute", "prefDepRoute", "prefArrRoute"},
	DataSource:      {"recType", "dataSource", "programName", "programVersion"},
	Sectorization:   {"recType", "recTime", "Source", "msgType", "rectypeCat", "sectorizationString"},
	MinSafeAltitude: {"recType", "recTime", "fltKey", "bcnCode", "cid", "Source", "msgType", "AcId", "recTypeCat", "coord1", "coord2", "alt", "significance", "coord1Accur", "coord2Accur", "altAccur", "msawtype", "msawTimeCat", "msawLocCat", "msawMinSafeAlt", "msawIndex1", "msawIndex2", "msawVolID"},
	FlightProgress:  {"recType", "recTime", "fltKey", "bcnCode", "cid", "Source", "msgType", "AcId", "recTypeCat", "acType", "Orig", "Dest", "depTime", "depTimeType", "arrTime", "arrTimeType"},
	AircraftState:   {"recType", "recTime", "fltKey", "bcnCode", "cid", "Source", "msgType", "AcId", "recTypeCat", "coord1", "coord2", "alt", "pitchAngle", "trueHeading", "rollAngle", "trueAirSpeed", "fltPhaseIndicator"},
	Configuration:   {"recType", "recTime", "fltKey", "bcnCode", "cid", "Source", "msgType", "AcId", "recTypeCat", "configType", "configSpec"},
}

// appendRule adds columns to a set of record types when the file format
// version is at or above a minimum. Later format versions only ever
// append columns; they never remove or reorder existing ones.
type appendRule struct {
	minVersion Version
	recordType RecordType
	columns    []string
}

// Rules are ordered by increasing minimum version so that appended
// columns land in the order the format introduced them.
var appendRules = []appendRule{
	{Version{2, 13, 0}, FlightSummary, []string{"modeSCode"}},
	{Version{2, 13, 0}, TrackPoint, []string{"trackNumber", "tptReturnType", "modeSCode"}},
	{Version{2, 13, 0}, FlightPlan, []string{"coordinationPoint", "coordinationPointType", "trackNumber", "modeSCode"}},
	{Version{2, 15, 0}, TrackPoint, []string{"sensorTrackNumberList", "spi", "dvs", "dupM3a", "tid"}},
}

// SchemaRegistry resolves column schemas for one file format version.
// It is built once per decode and is immutable afterwards, so it can be
// shared by concurrent extraction passes.
type SchemaRegistry struct {
	version Version
	columns map[RecordType][]string
}

// NewSchemaRegistry builds the schema table for the given version from
// the base columns plus every applicable append rule.
func NewSchemaRegistry(v Version) *SchemaRegistry {
	columns := make(map[RecordType][]string, len(baseColumns))
	for rt, cols := range baseColumns {
		columns[rt] = append([]string(nil), cols...)
	}
	for _, rule := range appendRules {
		if v.AtLeast(rule.minVersion) {
			columns[rule.recordType] = append(columns[rule.recordType], rule.columns...)
		}
	}
	return &SchemaRegistry{version: v, columns: columns}
}

// Version returns the file format version this registry was built for.
func (r *SchemaRegistry) Version() Version { return r.version }

// SchemaFor returns the ordered column list for a record type. The
// returned slice is a copy and may be retained by the caller.
func (r *SchemaRegistry) SchemaFor(rt RecordType) ([]string, error) {
	cols, ok := r.columns[rt]
	if !ok {
		return nil, &UnknownRecordTypeError{RecordType: rt}
	}
	return append([]string(nil), cols...), nil
}
