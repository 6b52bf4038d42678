// Package proj converts projected shapefile coordinates to geographic
// lon/lat using the WKT descriptor carried in a .prj sidecar. It covers
// the projection families seen in municipal open-data exports: state-plane
// Lambert Conformal Conic, Transverse Mercator (incl. UTM), Mercator, and
// spherical Web Mercator. Anything else is reported as unsupported so the
// importer can fall back to treating coordinates as already geographic.
package proj

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

type kind int

const (
	kindIdentity kind = iota
	kindTransverseMercator
	kindLambertConformalConic
	kindMercator
	kindWebMercator
)

// Projection converts between projected and geographic coordinates for one
// coordinate reference system.
type Projection struct {
	Name string

	kind kind
	a    float64 // semi-major axis, meters
	e2   float64 // first eccentricity squared
	unit float64 // meters per linear unit

	k0   float64 // scale factor at origin
	lat0 float64 // latitude of origin, radians
	lon0 float64 // central meridian, radians
	sp1  float64 // standard parallel 1, radians
	sp2  float64 // standard parallel 2, radians
	fe   float64 // false easting, meters
	fn   float64 // false northing, meters

	// derived LCC constants
	lccN, lccF, lccRho0 float64
}

// Identity returns a pass-through projection for data that is already in
// geographic lon/lat degrees.
func Identity() *Projection {
	return &Projection{Name: "identity", kind: kindIdentity, unit: 1}
}

// IsIdentity reports whether the projection passes coordinates through.
func (p *Projection) IsIdentity() bool {
	return p.kind == kindIdentity
}

// Parse builds a Projection from a WKT descriptor. A bare GEOGCS yields the
// identity projection; unsupported PROJCS projections are an error.
func Parse(wkt string) (*Projection, error) {
	if strings.TrimSpace(wkt) == "" {
		return nil, eris.New("proj: empty descriptor")
	}
	root, err := parseWKT(strings.TrimSpace(wkt))
	if err != nil {
		return nil, err
	}

	switch {
	case strings.EqualFold(root.keyword, "GEOGCS"):
		p := Identity()
		if len(root.values) > 0 {
			p.Name = root.values[0]
		}
		return p, nil
	case strings.EqualFold(root.keyword, "PROJCS"):
		return parseProjected(root)
	default:
		return nil, eris.Errorf("proj: unsupported descriptor %s", root.keyword)
	}
}

func parseProjected(root *wktNode) (*Projection, error) {
	p := &Projection{k0: 1, unit: 1}
	if len(root.values) > 0 {
		p.Name = root.values[0]
	}

	geogcs := root.child("GEOGCS")
	if geogcs == nil {
		return nil, eris.New("proj: PROJCS missing GEOGCS")
	}
	datum := geogcs.child("DATUM")
	if datum == nil {
		return nil, eris.New("proj: GEOGCS missing DATUM")
	}
	spheroid := datum.child("SPHEROID")
	if spheroid == nil {
		return nil, eris.New("proj: DATUM missing SPHEROID")
	}
	a, err := spheroid.floatValue(1)
	if err != nil {
		return nil, err
	}
	invF, err := spheroid.floatValue(2)
	if err != nil {
		return nil, err
	}
	p.a = a
	if invF != 0 {
		f := 1 / invF
		p.e2 = f * (2 - f)
	}

	projection := root.child("PROJECTION")
	if projection == nil || len(projection.values) == 0 {
		return nil, eris.New("proj: PROJCS missing PROJECTION")
	}
	projName := normalizeName(projection.values[0])

	params := make(map[string]float64)
	for _, pn := range root.childs("PARAMETER") {
		if len(pn.values) == 0 {
			continue
		}
		v, err := pn.floatValue(1)
		if err != nil {
			return nil, err
		}
		params[normalizeName(pn.values[0])] = v
	}
	param := func(name, alt string, def float64) float64 {
		if v, ok := params[name]; ok {
			return v
		}
		if alt != "" {
			if v, ok := params[alt]; ok {
				return v
			}
		}
		return def
	}

	if unit := root.child("UNIT"); unit != nil {
		if u, err := unit.floatValue(1); err == nil && u > 0 {
			p.unit = u
		}
	}

	// False origins are expressed in the projected unit, like coordinates.
	p.fe = param("false_easting", "", 0) * p.unit
	p.fn = param("false_northing", "", 0) * p.unit
	p.k0 = param("scale_factor", "", 1)
	p.lon0 = radians(param("central_meridian", "longitude_of_center", 0))
	p.lat0 = radians(param("latitude_of_origin", "latitude_of_center", 0))
	p.sp1 = radians(param("standard_parallel_1", "", degrees(p.lat0)))
	p.sp2 = radians(param("standard_parallel_2", "", degrees(p.sp1)))

	switch projName {
	case "transverse_mercator", "gauss_kruger":
		p.kind = kindTransverseMercator
	case "lambert_conformal_conic", "lambert_conformal_conic_1sp", "lambert_conformal_conic_2sp":
		p.kind = kindLambertConformalConic
		if err := p.deriveLCC(); err != nil {
			return nil, err
		}
	case "mercator", "mercator_1sp", "mercator_2sp":
		p.kind = kindMercator
		// A standard parallel fixes the scale when no explicit factor is given.
		if _, hasSF := params["scale_factor"]; !hasSF {
			if _, hasSP := params["standard_parallel_1"]; hasSP {
				p.k0 = msfn(p.sp1, p.e2)
			}
		}
	case "mercator_auxiliary_sphere", "popular_visualisation_pseudo_mercator", "web_mercator":
		p.kind = kindWebMercator
		p.e2 = 0
	default:
		return nil, eris.Errorf("proj: unsupported projection %q", projection.values[0])
	}

	return p, nil
}

// Inverse converts a projected coordinate to geographic lon/lat degrees.
func (p *Projection) Inverse(c geom.Coord) (geom.Coord, error) {
	if p.kind == kindIdentity {
		return geom.Coord{c.X(), c.Y()}, nil
	}

	x := c.X()*p.unit - p.fe
	y := c.Y()*p.unit - p.fn

	var lon, lat float64
	var err error
	switch p.kind {
	case kindTransverseMercator:
		lon, lat, err = p.inverseTM(x, y)
	case kindLambertConformalConic:
		lon, lat, err = p.inverseLCC(x, y)
	case kindMercator:
		lon, lat, err = p.inverseMercator(x, y)
	case kindWebMercator:
		lon, lat, err = p.inverseWebMercator(x, y)
	default:
		return nil, eris.Errorf("proj: inverse not implemented for %s", p.Name)
	}
	if err != nil {
		return nil, err
	}
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return nil, eris.Errorf("proj: inverse diverged for (%g, %g)", c.X(), c.Y())
	}
	return geom.Coord{degrees(lon), degrees(lat)}, nil
}

// Forward converts geographic lon/lat degrees to a projected coordinate.
// It is the exact counterpart of Inverse and exists so conversions can be
// verified by round-tripping.
func (p *Projection) Forward(c geom.Coord) (geom.Coord, error) {
	if p.kind == kindIdentity {
		return geom.Coord{c.X(), c.Y()}, nil
	}

	lon := radians(c.X())
	lat := radians(c.Y())

	var x, y float64
	var err error
	switch p.kind {
	case kindTransverseMercator:
		x, y, err = p.forwardTM(lon, lat)
	case kindLambertConformalConic:
		x, y, err = p.forwardLCC(lon, lat)
	case kindMercator:
		x, y, err = p.forwardMercator(lon, lat)
	case kindWebMercator:
		x, y, err = p.forwardWebMercator(lon, lat)
	default:
		return nil, eris.Errorf("proj: forward not implemented for %s", p.Name)
	}
	if err != nil {
		return nil, err
	}
	return geom.Coord{(x + p.fe) / p.unit, (y + p.fn) / p.unit}, nil
}

func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// msfn is Snyder's m(phi): the radius of the parallel of latitude phi,
// divided by a.
func msfn(phi, e2 float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e2*s*s)
}

// tsfn is Snyder's t(phi), the isometric colatitude function.
func tsfn(phi, e float64) float64 {
	es := e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), e/2)
}

// phiFromTS inverts tsfn by fixed-point iteration. Converges in a handful
// of rounds for any t from a finite projected coordinate.
func phiFromTS(ts, e float64) float64 {
	phi := math.Pi/2 - 2*math.Atan(ts)
	for i := 0; i < 15; i++ {
		es := e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(ts*math.Pow((1-es)/(1+es), e/2))
		if math.Abs(next-phi) < 1e-12 {
			return next
		}
		phi = next
	}
	return phi
}
