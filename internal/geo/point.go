package geo

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SRID is the spatial reference for all stored geometry (WGS 84).
const SRID = 4326

// ErrCoordinateFormat is returned for any coordinate string that is not
// exactly two comma-separated floats.
var ErrCoordinateFormat = fmt.Errorf("Coordinate format cannot be parsed. The coordinate should be two floats values separated by a comma.")

// Point is a PostGIS point column. API input is a "lat, lon" string;
// GeoJSON output uses [lon, lat] order.
type Point struct {
	Lat float64
	Lng float64
}

// ParseCoordinate parses a "lat, lon" string. Whitespace is ignored.
func ParseCoordinate(s string) (Point, error) {
	parts := strings.Split(strings.ReplaceAll(s, " ", ""), ",")
	if len(parts) != 2 {
		return Point{}, ErrCoordinateFormat
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Point{}, ErrCoordinateFormat
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Point{}, ErrCoordinateFormat
	}
	return Point{Lat: lat, Lng: lng}, nil
}

func (p Point) String() string {
	return fmt.Sprintf("SRID=%d;POINT(%v %v)", SRID, p.Lng, p.Lat)
}

// GormDataType implements the gorm column type for migrations.
func (Point) GormDataType() string {
	return fmt.Sprintf("geometry(Point,%d)", SRID)
}

// Value sends the point as EWKT, which the geometry input function
// accepts directly.
func (p Point) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan decodes the hex-encoded EWKB that PostGIS returns for geometry
// columns.
func (p *Point) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("geo: cannot scan %T into Point", value)
	}

	data, err := hex.DecodeString(string(raw))
	if err != nil {
		return fmt.Errorf("geo: invalid EWKB hex: %w", err)
	}
	return p.decodeEWKB(data)
}

const (
	wkbPoint     = 1
	ewkbSRIDFlag = 0x20000000
)

func (p *Point) decodeEWKB(data []byte) error {
	if len(data) < 5 {
		return fmt.Errorf("geo: EWKB too short")
	}
	var order binary.ByteOrder = binary.BigEndian
	if data[0] == 1 {
		order = binary.LittleEndian
	}
	geomType := order.Uint32(data[1:5])
	offset := 5
	if geomType&ewkbSRIDFlag != 0 {
		if len(data) < offset+4 {
			return fmt.Errorf("geo: EWKB missing SRID")
		}
		offset += 4
	}
	if geomType&0xff != wkbPoint {
		return fmt.Errorf("geo: unexpected geometry type %d", geomType&0xff)
	}
	if len(data) < offset+16 {
		return fmt.Errorf("geo: EWKB missing coordinates")
	}
	p.Lng = math.Float64frombits(order.Uint64(data[offset : offset+8]))
	p.Lat = math.Float64frombits(order.Uint64(data[offset+8 : offset+16]))
	return nil
}

type geoJSONPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(geoJSONPoint{Type: "Point", Coordinates: [2]float64{p.Lng, p.Lat}})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var g geoJSONPoint
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	if g.Type != "Point" {
		return fmt.Errorf("geo: unexpected GeoJSON type %q", g.Type)
	}
	p.Lng = g.Coordinates[0]
	p.Lat = g.Coordinates[1]
	return nil
}
