package proj

import "math"

// meridianArc is the distance along the meridian from the equator to
// latitude phi, in meters.
func meridianArc(phi, a, e2 float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return a * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// footpointLatitude inverts meridianArc.
func footpointLatitude(m, a, e2 float64) float64 {
	e4 := e2 * e2
	mu := m / (a * (1 - e2/4 - 3*e4/64 - 5*e4*e2/256))
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	e1sq := e1 * e1
	return mu + (3*e1/2-27*e1*e1sq/32)*math.Sin(2*mu) +
		(21*e1sq/16-55*e1sq*e1sq/32)*math.Sin(4*mu) +
		(151*e1*e1sq/96)*math.Sin(6*mu) +
		(1097*e1sq*e1sq/512)*math.Sin(8*mu)
}

func (p *Projection) forwardTM(lon, lat float64) (x, y float64, err error) {
	ep2 := p.e2 / (1 - p.e2)
	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	n := p.a / math.Sqrt(1-p.e2*sinLat*sinLat)
	t := math.Tan(lat) * math.Tan(lat)
	c := ep2 * cosLat * cosLat
	aa := (lon - p.lon0) * cosLat

	m := meridianArc(lat, p.a, p.e2)
	m0 := meridianArc(p.lat0, p.a, p.e2)

	aa2 := aa * aa
	aa3 := aa2 * aa
	x = p.k0 * n * (aa + (1-t+c)*aa3/6 +
		(5-18*t+t*t+72*c-58*ep2)*aa3*aa2/120)
	y = p.k0 * (m - m0 + n*math.Tan(lat)*(aa2/2+
		(5-t+9*c+4*c*c)*aa2*aa2/24+
		(61-58*t+t*t+600*c-330*ep2)*aa3*aa3/720))
	return x, y, nil
}

func (p *Projection) inverseTM(x, y float64) (lon, lat float64, err error) {
	ep2 := p.e2 / (1 - p.e2)

	m := meridianArc(p.lat0, p.a, p.e2) + y/p.k0
	phi1 := footpointLatitude(m, p.a, p.e2)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	den := 1 - p.e2*sinPhi1*sinPhi1
	n1 := p.a / math.Sqrt(den)
	r1 := p.a * (1 - p.e2) / (den * math.Sqrt(den))
	d := x / (n1 * p.k0)

	d2 := d * d
	d3 := d2 * d
	lat = phi1 - (n1*tanPhi1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d2*d2/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d3*d3/720)
	lon = p.lon0 + (d-(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d3*d2/120)/cosPhi1
	return lon, lat, nil
}
