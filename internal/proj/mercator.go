package proj

import (
	"math"

	"github.com/rotisserie/eris"
)

func (p *Projection) forwardMercator(lon, lat float64) (x, y float64, err error) {
	if math.Abs(lat) >= math.Pi/2-1e-10 {
		return 0, 0, eris.New("proj: mercator undefined at the poles")
	}
	e := math.Sqrt(p.e2)
	x = p.a * p.k0 * (lon - p.lon0)
	y = -p.a * p.k0 * math.Log(tsfn(lat, e))
	return x, y, nil
}

func (p *Projection) inverseMercator(x, y float64) (lon, lat float64, err error) {
	e := math.Sqrt(p.e2)
	ts := math.Exp(-y / (p.a * p.k0))
	lat = phiFromTS(ts, e)
	lon = x/(p.a*p.k0) + p.lon0
	return lon, lat, nil
}

// Web Mercator treats the earth as a sphere of radius a regardless of the
// declared datum.

func (p *Projection) forwardWebMercator(lon, lat float64) (x, y float64, err error) {
	if math.Abs(lat) >= math.Pi/2-1e-10 {
		return 0, 0, eris.New("proj: web mercator undefined at the poles")
	}
	x = p.a * (lon - p.lon0)
	y = p.a * math.Log(math.Tan(math.Pi/4+lat/2))
	return x, y, nil
}

func (p *Projection) inverseWebMercator(x, y float64) (lon, lat float64, err error) {
	lon = x/p.a + p.lon0
	lat = math.Pi/2 - 2*math.Atan(math.Exp(-y/p.a))
	return lon, lat, nil
}
