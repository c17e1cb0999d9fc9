package geo

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	p, err := ParseCoordinate("-4.0, 32.5")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: -4.0, Lng: 32.5}, p)

	p, err = ParseCoordinate("-1.2921,36.8219")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: -1.2921, Lng: 36.8219}, p)

	for _, input := range []string{"", "1.0", "1.0,2.0,3.0", "abc, 2.0", "1.0, xyz"} {
		_, err := ParseCoordinate(input)
		assert.ErrorIs(t, err, ErrCoordinateFormat, "input %q", input)
	}
}

func TestPointValue(t *testing.T) {
	v, err := Point{Lat: -1.2921, Lng: 36.8219}.Value()
	require.NoError(t, err)
	assert.Equal(t, "SRID=4326;POINT(36.8219 -1.2921)", v)
}

// ewkbHex builds the little-endian hex EWKB that PostGIS returns for a
// stored point, coordinates in (lng, lat) order.
func ewkbHex(lng, lat float64) string {
	buf := make([]byte, 25)
	buf[0] = 1
	binary.LittleEndian.PutUint32(buf[1:5], wkbPoint|ewkbSRIDFlag)
	binary.LittleEndian.PutUint32(buf[5:9], SRID)
	binary.LittleEndian.PutUint64(buf[9:17], math.Float64bits(lng))
	binary.LittleEndian.PutUint64(buf[17:25], math.Float64bits(lat))
	return hex.EncodeToString(buf)
}

func TestPointScan(t *testing.T) {
	var p Point
	require.NoError(t, p.Scan(ewkbHex(36.8219, -1.2921)))
	assert.Equal(t, Point{Lat: -1.2921, Lng: 36.8219}, p)

	var fromBytes Point
	require.NoError(t, fromBytes.Scan([]byte(ewkbHex(32.5, -4.0))))
	assert.Equal(t, Point{Lat: -4.0, Lng: 32.5}, fromBytes)

	var untouched Point
	require.NoError(t, untouched.Scan(nil))
	assert.Equal(t, Point{}, untouched)

	assert.Error(t, new(Point).Scan("not hex"))
	assert.Error(t, new(Point).Scan(42))
}

func TestPointGeoJSON(t *testing.T) {
	data, err := json.Marshal(Point{Lat: -4.0, Lng: 32.5})
	require.NoError(t, err)
	// GeoJSON coordinates are [lng, lat].
	assert.JSONEq(t, `{"type":"Point","coordinates":[32.5,-4.0]}`, string(data))

	var p Point
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, Point{Lat: -4.0, Lng: 32.5}, p)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"LineString","coordinates":[0,0]}`), &p))
}
