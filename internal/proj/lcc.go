package proj

import (
	"math"

	"github.com/rotisserie/eris"
)

// deriveLCC precomputes the cone constant, F, and the radius of the
// latitude of origin. Equal standard parallels select the tangent-cone
// (single parallel) form.
func (p *Projection) deriveLCC() error {
	e := math.Sqrt(p.e2)
	m1 := msfn(p.sp1, p.e2)
	t1 := tsfn(p.sp1, e)

	if math.Abs(p.sp1-p.sp2) > 1e-10 {
		m2 := msfn(p.sp2, p.e2)
		t2 := tsfn(p.sp2, e)
		p.lccN = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	} else {
		p.lccN = math.Sin(p.sp1)
	}
	if p.lccN == 0 {
		return eris.New("proj: lambert standard parallels on the equator")
	}
	p.lccF = m1 / (p.lccN * math.Pow(t1, p.lccN))
	p.lccRho0 = p.a * p.k0 * p.lccF * math.Pow(tsfn(p.lat0, e), p.lccN)
	return nil
}

func (p *Projection) forwardLCC(lon, lat float64) (x, y float64, err error) {
	e := math.Sqrt(p.e2)

	var rho float64
	switch {
	case math.Abs(math.Abs(lat)-math.Pi/2) > 1e-10:
		rho = p.a * p.k0 * p.lccF * math.Pow(tsfn(lat, e), p.lccN)
	case lat*p.lccN > 0:
		rho = 0
	default:
		return 0, 0, eris.New("proj: latitude at the pole opposite the cone")
	}

	theta := p.lccN * (lon - p.lon0)
	x = rho * math.Sin(theta)
	y = p.lccRho0 - rho*math.Cos(theta)
	return x, y, nil
}

func (p *Projection) inverseLCC(x, y float64) (lon, lat float64, err error) {
	e := math.Sqrt(p.e2)

	dy := p.lccRho0 - y
	rho := math.Hypot(x, dy)
	if p.lccN < 0 {
		rho = -rho
		x = -x
		dy = -dy
	}
	if rho == 0 {
		if p.lccN > 0 {
			return p.lon0, math.Pi / 2, nil
		}
		return p.lon0, -math.Pi / 2, nil
	}

	theta := math.Atan2(x, dy)
	ts := math.Pow(rho/(p.a*p.k0*p.lccF), 1/p.lccN)
	lat = phiFromTS(ts, e)
	lon = theta/p.lccN + p.lon0
	return lon, lat, nil
}
